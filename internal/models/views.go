package models

import (
	"time"
)

// PublicComment is the visitor-facing projection of a comment
type PublicComment struct {
	ID          string          `json:"id"`
	ParentID    *string         `json:"parent_id,omitempty"`
	Alias       string          `json:"alias"`
	Body        string          `json:"body"`
	IsModerator bool            `json:"is_moderator"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Meta        PublicMeta      `json:"meta"`
	Children    []PublicComment `json:"children"`
}

// PublicMeta exposes only styling hints, review flags and the report count
type PublicMeta struct {
	AliasProvided  bool `json:"alias_provided"`
	Moderator      bool `json:"moderator"`
	RequiresReview bool `json:"requires_review"`
	ReportCount    int  `json:"report_count"`
}

// ModeratorComment is the full record, including the decrypted client snapshot
type ModeratorComment struct {
	Comment
	Client *ClientSnapshot `json:"client,omitempty"`
	Notes  []string        `json:"notes,omitempty"`
}
