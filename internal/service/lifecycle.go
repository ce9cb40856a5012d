package service

import (
	"context"
	"fmt"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/metrics"
	"github.com/anon-comments-api/internal/models"
)

// Cause names who or what moved a comment to a new status
type Cause string

const (
	CauseModerator  Cause = "moderator"
	CauseSelfDelete Cause = "self_delete"
	CauseReports    Cause = "reports"
)

// allowedCauses lists, per target status, the causes that may move a
// comment there. New comments enter as published or pending at creation.
var allowedCauses = map[models.Status]map[Cause]bool{
	models.StatusPublished: {CauseModerator: true},
	models.StatusShadow:    {CauseModerator: true},
	models.StatusHidden:    {CauseModerator: true, CauseSelfDelete: true, CauseReports: true},
}

// InitialStatus decides the status of a new visitor comment. Only a comment
// that passes the strict check is published, and only when auto-publish is on.
func InitialStatus(autoPublish, strictPassed bool) models.Status {
	if autoPublish && strictPassed {
		return models.StatusPublished
	}
	return models.StatusPending
}

// applyTransition updates status and moderation flags in place. It reports
// whether the status itself changed.
func applyTransition(c *models.Comment, to models.Status, cause Cause) (bool, error) {
	if !allowedCauses[to][cause] {
		return false, apperror.Internal(fmt.Errorf("transition to %s by %s is not allowed", to, cause))
	}
	if cause == CauseReports && c.Status != models.StatusPublished {
		return false, nil
	}

	if cause == CauseModerator {
		switch to {
		case models.StatusPublished:
			c.Meta.Moderation.ModeratorFlagged = false
			c.Meta.Moderation.RequiresReview = false
		case models.StatusHidden, models.StatusShadow:
			c.Meta.Moderation.ModeratorFlagged = true
		}
	}

	changed := c.Status != to
	c.Status = to
	return changed, nil
}

// transition persists a status change and announces it
func (c *core) transition(ctx context.Context, comment *models.Comment, to models.Status, cause Cause) error {
	previous := comment.Status
	changed, err := applyTransition(comment, to, cause)
	if err != nil {
		return err
	}
	if !changed && cause == CauseReports {
		return nil
	}

	if err := c.repos.Comment.UpdateState(ctx, comment.ID, comment.Status, comment.Meta); err != nil {
		return apperror.Internal(err)
	}
	if !changed {
		return nil
	}

	metrics.TransitionsTotal.WithLabelValues(string(to), string(cause)).Inc()
	c.log.Info().
		Str("comment_id", comment.ID).
		Str("from", string(previous)).
		Str("to", string(to)).
		Str("cause", string(cause)).
		Msg("Comment status changed")
	c.publish(events.SubjectCommentStatus, events.CommentEvent{
		CommentID:      comment.ID,
		ArticleID:      comment.ArticleID,
		Status:         to,
		PreviousStatus: previous,
		Cause:          string(cause),
		IsModerator:    comment.IsModerator,
		RequiresReview: comment.Meta.Moderation.RequiresReview,
		Severity:       comment.Meta.Moderation.Severity,
		At:             c.now().UTC(),
	})
	return nil
}
