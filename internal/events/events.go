// Package events publishes comment and ban lifecycle events for downstream
// moderation tooling. Publishing is fire-and-forget; a failed publish never
// fails the request that caused it.
package events

import (
	"time"

	"github.com/anon-comments-api/internal/models"
)

// Subjects published by the service
const (
	SubjectCommentCreated = "comments.created"
	SubjectCommentReview  = "comments.review"
	SubjectCommentStatus  = "comments.status"
	SubjectBanCreated     = "bans.created"
	SubjectBanDeleted     = "bans.deleted"
	SubjectBansSwept      = "bans.swept"
)

// Publisher sends an event payload on a subject
type Publisher interface {
	Publish(subject string, payload interface{}) error
	Close()
}

// CommentEvent describes a new comment or a status change
type CommentEvent struct {
	CommentID      string          `json:"comment_id"`
	ArticleID      string          `json:"article_id"`
	Status         models.Status   `json:"status"`
	PreviousStatus models.Status   `json:"previous_status,omitempty"`
	Cause          string          `json:"cause,omitempty"`
	IsModerator    bool            `json:"is_moderator,omitempty"`
	RequiresReview bool            `json:"requires_review"`
	Severity       models.Severity `json:"severity,omitempty"`
	Notes          []string        `json:"notes,omitempty"`
	At             time.Time       `json:"at"`
}

// BanEvent describes a created, updated or lifted ban
type BanEvent struct {
	BanID     string     `json:"ban_id"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Updated   bool       `json:"updated,omitempty"`
	Removed   int64      `json:"removed_comments,omitempty"`
	At        time.Time  `json:"at"`
}

// SweepEvent reports a ban sweep
type SweepEvent struct {
	Deleted int64     `json:"deleted"`
	At      time.Time `json:"at"`
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(string, interface{}) error { return nil }
func (Nop) Close()                            {}

var _ Publisher = Nop{}
