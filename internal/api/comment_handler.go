package api

import (
	"net/http"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	reporterCookie    = "reporter_key"
	reporterHeader    = "X-Reporter-Key"
	editKeyHeader     = "X-Edit-Key"
	reporterCookieTTL = 365 * 24 * 60 * 60
)

// CommentHandler handles the public comment endpoints
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// fail logs unexpected errors and writes the error response
func (h *CommentHandler) fail(c *gin.Context, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	respondError(c, err)
}

// List handles GET /v1/articles/:slug/comments
func (h *CommentHandler) List(c *gin.Context) {
	var req models.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.fail(c, apperror.Validation("invalid query parameters"))
		return
	}
	req.ArticleSlug = c.Param("slug")

	result, err := h.services.Comment.List(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Submit handles POST /v1/articles/:slug/comments
func (h *CommentHandler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	// An unreadable body might carry a filled honeypot, so it gets the same
	// answer as one.
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Str("slug", c.Param("slug")).Msg("Unreadable submission rejected")
		h.fail(c, apperror.Forbidden(service.SubmissionRejected))
		return
	}
	req.ArticleSlug = c.Param("slug")
	req.Address = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.services.Comment.Submit(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Report handles POST /v1/comments/:id/reports
// The body is optional; the reporter key comes from a cookie or header and
// is issued as a cookie when missing.
func (h *CommentHandler) Report(c *gin.Context) {
	var req models.ReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, apperror.Validation("invalid JSON body"))
			return
		}
	}
	req.CommentID = c.Param("id")
	req.ReporterKey = c.GetHeader(reporterHeader)
	if req.ReporterKey == "" {
		req.ReporterKey, _ = c.Cookie(reporterCookie)
	}

	result, err := h.services.Comment.Report(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(reporterCookie, result.ReporterKey, reporterCookieTTL, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, result)
}

// SelfDelete handles DELETE /v1/comments/:id
func (h *CommentHandler) SelfDelete(c *gin.Context) {
	var req models.SelfDeleteRequest
	if key := c.GetHeader(editKeyHeader); key != "" {
		req.EditKey = key
	} else if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, apperror.Validation("invalid JSON body"))
			return
		}
	}
	req.CommentID = c.Param("id")

	if err := h.services.Comment.SelfDelete(c.Request.Context(), &req); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
