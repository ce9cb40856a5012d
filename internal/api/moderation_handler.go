package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ModerationHandler handles the moderator endpoints
type ModerationHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewModerationHandler creates a new ModerationHandler
func NewModerationHandler(services *service.Services, log zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{
		services: services,
		log:      log.With().Str("handler", "moderation").Logger(),
	}
}

func (h *ModerationHandler) fail(c *gin.Context, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	respondError(c, err)
}

// Queue handles GET /v1/moderation/comments
func (h *ModerationHandler) Queue(c *gin.Context) {
	var req models.QueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.fail(c, apperror.Validation("invalid query parameters"))
		return
	}
	result, err := h.services.Moderation.Queue(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// View handles GET /v1/moderation/comments/:id
func (h *ModerationHandler) View(c *gin.Context) {
	h.commentAction(c, h.services.Moderation.View)
}

// Publish handles POST /v1/moderation/comments/:id/publish
func (h *ModerationHandler) Publish(c *gin.Context) {
	h.commentAction(c, h.services.Moderation.Publish)
}

// Hide handles POST /v1/moderation/comments/:id/hide
func (h *ModerationHandler) Hide(c *gin.Context) {
	h.commentAction(c, h.services.Moderation.Hide)
}

// Shadow handles POST /v1/moderation/comments/:id/shadow
func (h *ModerationHandler) Shadow(c *gin.Context) {
	h.commentAction(c, h.services.Moderation.Shadow)
}

func (h *ModerationHandler) commentAction(c *gin.Context, action func(context.Context, string) (*models.ModeratorComment, error)) {
	id := c.Param("id")
	if !isUUID(id) {
		h.fail(c, apperror.Validation("invalid comment id"))
		return
	}
	result, err := action(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info().
		Str("moderator", c.GetString("moderator")).
		Str("comment_id", id).
		Str("status", string(result.Status)).
		Msg("Moderator action")
	c.JSON(http.StatusOK, result)
}

// BanFromComment handles POST /v1/moderation/comments/:id/ban
func (h *ModerationHandler) BanFromComment(c *gin.Context) {
	var req models.BanFromCommentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, apperror.Validation("invalid JSON body"))
			return
		}
	}
	req.CommentID = c.Param("id")

	result, err := h.services.Moderation.BanFromComment(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Post handles POST /v1/moderation/articles/:slug/comments
func (h *ModerationHandler) Post(c *gin.Context) {
	var req models.ModeratorPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Validation("invalid JSON body"))
		return
	}
	req.ArticleSlug = c.Param("slug")
	req.Address = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.services.Moderation.Post(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListBans handles GET /v1/moderation/bans
func (h *ModerationHandler) ListBans(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	bans, err := h.services.Moderation.ListBans(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if bans == nil {
		bans = []*models.Ban{}
	}
	c.JSON(http.StatusOK, gin.H{"bans": bans})
}

// CreateBan handles POST /v1/moderation/bans
func (h *ModerationHandler) CreateBan(c *gin.Context) {
	var req models.CreateBanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.Validation("invalid JSON body"))
		return
	}
	result, err := h.services.Moderation.CreateBan(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// DeleteBan handles DELETE /v1/moderation/bans/:id
func (h *ModerationHandler) DeleteBan(c *gin.Context) {
	id := c.Param("id")
	if !isUUID(id) {
		h.fail(c, apperror.Validation("invalid ban id"))
		return
	}
	if err := h.services.Moderation.DeleteBan(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
