package models

import (
	"time"
)

// Status is the lifecycle state of a comment
type Status string

const (
	StatusPublished Status = "published"
	StatusPending   Status = "pending"
	StatusHidden    Status = "hidden"
	StatusShadow    Status = "shadow"
)

// ValidStatuses defines the recognized comment statuses
var ValidStatuses = map[Status]bool{
	StatusPublished: true,
	StatusPending:   true,
	StatusHidden:    true,
	StatusShadow:    true,
}

// NormalizeStatus maps any unrecognized value to pending
func NormalizeStatus(s string) Status {
	if ValidStatuses[Status(s)] {
		return Status(s)
	}
	return StatusPending
}

// Comment is an anonymous comment on an article
type Comment struct {
	ID          string    `json:"id" db:"id"`
	ArticleID   string    `json:"article_id" db:"article_id"`
	ParentID    *string   `json:"parent_id,omitempty" db:"parent_id"`
	// Orphaned marks a reply whose parent was purged. It is kept for
	// moderators but never listed publicly.
	Orphaned    bool      `json:"orphaned,omitempty" db:"orphaned"`
	Body        string    `json:"body" db:"body"`
	Alias       string    `json:"alias" db:"alias"`
	IsModerator bool      `json:"is_moderator" db:"is_moderator"`
	IPHash      string    `json:"ip_hash" db:"ip_hash"`
	NetHash     string    `json:"net_hash" db:"net_hash"`
	EditKeyHash string    `json:"-" db:"edit_key_hash"`
	Status      Status    `json:"status" db:"status"`
	Meta        Meta      `json:"meta" db:"meta"` // JSONB
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Meta is the structured document stored alongside a comment
type Meta struct {
	// ClientSealed is the encrypted ClientSnapshot, readable by moderators only
	ClientSealed string          `json:"client_sealed,omitempty"`
	Alias        AliasMeta       `json:"alias"`
	Moderation   ModerationState `json:"moderation"`
}

// AliasMeta carries styling hints for the display name
type AliasMeta struct {
	Provided bool `json:"provided"`
}

// ModerationState is the moderation bookkeeping for a comment.
// ReportCount is filled from a count query on read and never trusted from storage.
type ModerationState struct {
	ReportCount      int      `json:"report_count"`
	ModeratorFlagged bool     `json:"moderator_flagged"`
	RequiresReview   bool     `json:"requires_review"`
	Reasons          []Reason `json:"reasons,omitempty"`
	Severity         Severity `json:"severity"`
	Score            int      `json:"score"`
}

// ClientSnapshot is the privacy-scoped record of the submitting client
type ClientSnapshot struct {
	Address       string    `json:"address"`
	MaskedAddress string    `json:"masked_address"`
	UserAgent     string    `json:"user_agent"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Body length bounds, in characters after trimming
const (
	MinBodyLength = 1
	MaxBodyLength = 2000
)
