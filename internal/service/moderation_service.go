package service

import (
	"context"
	"strings"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/ban"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/identity"
	"github.com/anon-comments-api/internal/metrics"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/moderation"
	"github.com/anon-comments-api/internal/validation"
)

// ModeratorAlias is the display name of moderator posts without an alias
const ModeratorAlias = "Moderator"

// DefaultBanPageSize is the number of bans listed when no limit is given
const DefaultBanPageSize = 50

// moderationService implements ModerationService
type moderationService struct {
	*core
}

func newModerationService(c *core) *moderationService {
	scoped := *c
	scoped.log = c.log.With().Str("service", "moderation").Logger()
	return &moderationService{core: &scoped}
}

func (s *moderationService) Publish(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	return s.moveTo(ctx, commentID, models.StatusPublished)
}

func (s *moderationService) Hide(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	return s.moveTo(ctx, commentID, models.StatusHidden)
}

func (s *moderationService) Shadow(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	return s.moveTo(ctx, commentID, models.StatusShadow)
}

func (s *moderationService) moveTo(ctx context.Context, commentID string, to models.Status) (*models.ModeratorComment, error) {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, comment, to, CauseModerator); err != nil {
		return nil, err
	}
	return s.view(ctx, comment)
}

// View returns the full record of one comment
func (s *moderationService) View(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, comment)
}

func (s *moderationService) view(ctx context.Context, comment *models.Comment) (*models.ModeratorComment, error) {
	count, err := s.repos.Report.CountByComment(ctx, comment.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	view := s.toModerator(comment, count)
	return &view, nil
}

// Queue pages through comments in one status, pending by default
func (s *moderationService) Queue(ctx context.Context, req *models.QueueRequest) (*models.QueueResult, error) {
	if err := validation.ToError(s.validator.ValidateQueue(req)); err != nil {
		return nil, err
	}
	status := models.StatusPending
	if req.Status != "" {
		status = models.Status(req.Status)
	}
	before, _ := validation.ParseCursor(req.Cursor)
	limit := validation.ClampLimit(req.Limit, DefaultPageSize)

	comments, err := s.repos.Comment.ListByStatus(ctx, status, before, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	counts, err := s.countReports(ctx, comments)
	if err != nil {
		return nil, err
	}

	result := &models.QueueResult{Comments: make([]models.ModeratorComment, 0, len(comments))}
	for _, c := range comments {
		result.Comments = append(result.Comments, s.toModerator(c, counts[c.ID]))
	}
	if len(comments) == limit {
		next := validation.FormatCursor(comments[len(comments)-1].CreatedAt)
		result.NextCursor = &next
	}
	return result, nil
}

// Post publishes a moderator-authored comment. It bypasses CAPTCHA, rate
// limits and bans but the body must pass the strict check.
func (s *moderationService) Post(ctx context.Context, req *models.ModeratorPostRequest) (*models.ModeratorComment, error) {
	if err := validation.ToError(s.validator.ValidateModeratorPost(req)); err != nil {
		return nil, err
	}
	body, err := moderation.ValidateLength(req.Body)
	if err != nil {
		return nil, err
	}
	if err := s.moderator.ValidateBody(body); err != nil {
		return nil, err
	}

	article, err := s.loadArticle(ctx, req.ArticleSlug)
	if err != nil {
		return nil, err
	}
	parentID, err := s.checkParent(ctx, req.ParentID, article)
	if err != nil {
		return nil, err
	}

	alias := identity.Alias{Name: ModeratorAlias}
	if name := strings.TrimSpace(req.Alias); name != "" {
		if err := s.aliases.Validate(name); err != nil {
			return nil, err
		}
		alias = identity.Alias{Name: name, Provided: true}
	}

	// Moderator posts get an edit key hash like any other row; the key is discarded
	editKey, err := identity.NewEditKey()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	sealed, err := s.sealClient(req.Address, req.UserAgent)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ArticleID:   article.ID,
		ParentID:    parentID,
		Body:        body,
		Alias:       alias.Name,
		IsModerator: true,
		IPHash:      s.hasher.HashIdentity(req.Address),
		NetHash:     s.hasher.HashNetwork(req.Address),
		EditKeyHash: s.hasher.HashEditKey(editKey),
		Status:      models.StatusPublished,
		Meta: models.Meta{
			ClientSealed: sealed,
			Alias:        models.AliasMeta{Provided: alias.Provided},
			Moderation:   models.ModerationState{Severity: models.SeverityNone},
		},
	}
	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		return nil, apperror.Internal(err)
	}

	metrics.SubmissionsTotal.WithLabelValues("moderator").Inc()
	s.log.Info().
		Str("comment_id", comment.ID).
		Str("article_id", article.ID).
		Msg("Moderator comment posted")
	s.announceCreated(comment)

	view := s.toModerator(comment, 0)
	return &view, nil
}

// BanFromComment bans the identity behind a comment, both hashes by default
func (s *moderationService) BanFromComment(ctx context.Context, req *models.BanFromCommentRequest) (*models.BanResult, error) {
	if err := validation.ToError(s.validator.ValidateBanFromComment(req)); err != nil {
		return nil, err
	}
	comment, err := s.loadComment(ctx, req.CommentID)
	if err != nil {
		return nil, err
	}
	scope := req.Scope
	if scope == "" {
		scope = models.BanScopeBoth
	}
	return s.ban(ctx, ban.HashesForScope(scope, comment), req.Reason, req.ExpiresAt, req.Purge)
}

// CreateBan bans raw addresses, which are hashed first, or given hashes
func (s *moderationService) CreateBan(ctx context.Context, req *models.CreateBanRequest) (*models.BanResult, error) {
	if err := validation.ToError(s.validator.ValidateCreateBan(req)); err != nil {
		return nil, err
	}
	h := ban.Hashes{
		IP:  strings.ToLower(req.IPHash),
		Net: strings.ToLower(req.NetHash),
	}
	if req.IP != "" {
		h.IP = s.hasher.HashIdentity(strings.TrimSpace(req.IP))
	}
	if req.Net != "" {
		h.Net = s.hasher.HashNetwork(validation.NetworkAddress(req.Net))
	}
	return s.ban(ctx, h, req.Reason, req.ExpiresAt, req.Purge)
}

func (s *moderationService) ban(ctx context.Context, h ban.Hashes, reason string, expiresAt *time.Time, purge bool) (*models.BanResult, error) {
	b, created, err := s.bans.CreateOrUpdate(ctx, h, reason, expiresAt)
	if err != nil {
		return nil, err
	}
	action := "updated"
	if created {
		action = "created"
	}
	metrics.BansTotal.WithLabelValues(action).Inc()

	result := &models.BanResult{Ban: b}
	if purge {
		result.RemovedCount = s.bans.PurgeMatching(ctx, h)
	}

	s.publish(events.SubjectBanCreated, events.BanEvent{
		BanID:     b.ID,
		Reason:    b.Reason,
		ExpiresAt: b.ExpiresAt,
		Updated:   !created,
		Removed:   result.RemovedCount,
		At:        s.now().UTC(),
	})
	return result, nil
}

// DeleteBan lifts a ban
func (s *moderationService) DeleteBan(ctx context.Context, banID string) error {
	if err := s.bans.Delete(ctx, banID); err != nil {
		return err
	}
	metrics.BansTotal.WithLabelValues("deleted").Inc()
	s.publish(events.SubjectBanDeleted, events.BanEvent{BanID: banID, At: s.now().UTC()})
	return nil
}

// ListBans returns the most recent bans
func (s *moderationService) ListBans(ctx context.Context, limit int) ([]*models.Ban, error) {
	return s.bans.List(ctx, validation.ClampLimit(limit, DefaultBanPageSize))
}
