package service

import (
	"github.com/anon-comments-api/internal/models"
)

// toPublic projects a comment for visitors. Hashes, the edit key hash and
// the sealed client snapshot never leave through this view.
func toPublic(c *models.Comment, reportCount int) models.PublicComment {
	return models.PublicComment{
		ID:          c.ID,
		ParentID:    c.ParentID,
		Alias:       c.Alias,
		Body:        c.Body,
		IsModerator: c.IsModerator,
		Status:      models.NormalizeStatus(string(c.Status)),
		CreatedAt:   c.CreatedAt,
		Meta: models.PublicMeta{
			AliasProvided:  c.Meta.Alias.Provided,
			Moderator:      c.IsModerator,
			RequiresReview: c.Meta.Moderation.RequiresReview,
			ReportCount:    reportCount,
		},
		Children: []models.PublicComment{},
	}
}

// toModerator projects the full record, opening the client snapshot.
// A snapshot that cannot be opened is logged and left out.
func (c *core) toModerator(comment *models.Comment, reportCount int) models.ModeratorComment {
	view := models.ModeratorComment{Comment: *comment}
	view.Status = models.NormalizeStatus(string(comment.Status))
	view.Meta.ClientSealed = ""
	view.Meta.Moderation.ReportCount = reportCount

	if comment.Meta.ClientSealed != "" {
		var snapshot models.ClientSnapshot
		if err := c.sealer.Open(comment.Meta.ClientSealed, &snapshot); err != nil {
			c.log.Warn().Err(err).Str("comment_id", comment.ID).Msg("Failed to open client snapshot")
		} else {
			view.Client = &snapshot
		}
	}

	for _, r := range comment.Meta.Moderation.Reasons {
		view.Notes = append(view.Notes, r.Note())
	}
	return view
}
