package service

import (
	"context"
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

// SubmissionRejected is the only detail given to a caller caught by the
// honeypot or sending a body that cannot be read
const SubmissionRejected = "submission rejected"

// commentService implements CommentService
type commentService struct {
	*core
}

func newCommentService(c *core) *commentService {
	scoped := *c
	scoped.log = c.log.With().Str("service", "comment").Logger()
	return &commentService{core: &scoped}
}

// Submit runs a visitor comment through the admission pipeline. Checks run
// cheapest first and the first failure ends the submission.
func (s *commentService) Submit(ctx context.Context, req *models.SubmitRequest) (result *models.SubmitResult, err error) {
	started := time.Now()
	defer func() {
		outcome := string(apperror.KindOf(err))
		if err == nil {
			outcome = string(result.Comment.Status)
		}
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
		metrics.SubmitLatency.Observe(time.Since(started).Seconds())
	}()

	// Bots fill the hidden field; say as little as possible
	if req.Honeypot != "" {
		s.log.Info().Str("slug", req.ArticleSlug).Msg("Honeypot submission rejected")
		return nil, apperror.Forbidden(SubmissionRejected)
	}

	if err := validation.ToError(s.validator.ValidateSubmit(req)); err != nil {
		return nil, err
	}
	body, err := moderation.ValidateLength(req.Body)
	if err != nil {
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

	hashes := ban.Hashes{
		IP:  s.hasher.HashIdentity(req.Address),
		Net: s.hasher.HashNetwork(req.Address),
	}
	banned, err := s.bans.IsBanned(ctx, hashes)
	if err != nil {
		return nil, err
	}
	if banned {
		s.log.Info().Str("ip_hash", shortHash(hashes.IP)).Msg("Submission from banned identity rejected")
		return nil, apperror.Forbidden("you are not allowed to comment")
	}

	if err := s.captcha.Verify(ctx, req.CaptchaToken, req.Address); err != nil {
		return nil, err
	}
	if err := s.limiter.Enforce(ctx, hashes.IP); err != nil {
		return nil, err
	}
	if err := s.detector.Detect(ctx, hashes.IP, body); err != nil {
		return nil, err
	}

	alias, err := s.aliases.Resolve(req.Alias, article.AliasTemplate, req.Address, article.ID)
	if err != nil {
		return nil, err
	}

	verdict := s.moderator.Evaluate(body)
	status := InitialStatus(s.cfg.Moderation.AutoPublish(), s.moderator.ValidateBody(body) == nil)

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
		IPHash:      hashes.IP,
		NetHash:     hashes.Net,
		EditKeyHash: s.hasher.HashEditKey(editKey),
		Status:      status,
		Meta: models.Meta{
			ClientSealed: sealed,
			Alias:        models.AliasMeta{Provided: alias.Provided},
			Moderation: models.ModerationState{
				RequiresReview: verdict.RequiresReview,
				Reasons:        verdict.Reasons,
				Severity:       verdict.Severity,
				Score:          verdict.Score,
			},
		},
	}
	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		return nil, apperror.Internal(err)
	}

	s.log.Info().
		Str("comment_id", comment.ID).
		Str("article_id", article.ID).
		Str("status", string(status)).
		Bool("requires_review", verdict.RequiresReview).
		Str("severity", string(verdict.Severity)).
		Msg("Comment submitted")

	s.announceCreated(comment)

	return &models.SubmitResult{
		Comment: toPublic(comment, 0),
		EditKey: editKey,
	}, nil
}

// announceCreated publishes the created event and, for flagged comments,
// a review event carrying the moderator notes
func (c *core) announceCreated(comment *models.Comment) {
	event := events.CommentEvent{
		CommentID:      comment.ID,
		ArticleID:      comment.ArticleID,
		Status:         comment.Status,
		IsModerator:    comment.IsModerator,
		RequiresReview: comment.Meta.Moderation.RequiresReview,
		Severity:       comment.Meta.Moderation.Severity,
		At:             c.now().UTC(),
	}
	c.publish(events.SubjectCommentCreated, event)

	if comment.Meta.Moderation.RequiresReview {
		for _, r := range comment.Meta.Moderation.Reasons {
			event.Notes = append(event.Notes, r.Note())
		}
		c.publish(events.SubjectCommentReview, event)
	}
}
