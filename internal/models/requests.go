package models

import (
	"time"
)

// SubmitRequest is a visitor comment submission
type SubmitRequest struct {
	ArticleSlug  string `json:"-"` // From path
	ParentID     string `json:"parent_id,omitempty"`
	Body         string `json:"body"`
	Alias        string `json:"alias,omitempty"`
	CaptchaToken string `json:"captcha_token,omitempty"`
	Honeypot     string `json:"website,omitempty"`
	Address      string `json:"-"` // From connection
	UserAgent    string `json:"-"` // From header
}

// SubmitResult is returned once per successful submission.
// EditKey is the only copy of the plaintext self-delete secret.
type SubmitResult struct {
	Comment PublicComment `json:"comment"`
	EditKey string        `json:"edit_key"`
}

// ListRequest asks for a page of published comments
type ListRequest struct {
	ArticleSlug string `json:"-"`
	Cursor      string `form:"cursor"`
	Limit       int    `form:"limit"`
}

// ListResult is one page of the public comment tree
type ListResult struct {
	Comments   []PublicComment `json:"comments"`
	NextCursor *string         `json:"next_cursor"`
}

// ReportRequest files an abuse report
type ReportRequest struct {
	CommentID   string `json:"-"`
	Reason      string `json:"reason"`
	ReporterKey string `json:"-"` // From cookie or header
}

// ReportResult acknowledges a report
type ReportResult struct {
	OK          bool   `json:"ok"`
	ReportCount int    `json:"report_count"`
	ReporterKey string `json:"-"`
}

// SelfDeleteRequest hides a comment using its edit key
type SelfDeleteRequest struct {
	CommentID string `json:"-"`
	EditKey   string `json:"edit_key"`
}

// BanFromCommentRequest bans the identity behind a comment
type BanFromCommentRequest struct {
	CommentID string     `json:"-"`
	Scope     BanScope   `json:"scope"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Purge     bool       `json:"purge,omitempty"`
}

// CreateBanRequest bans raw addresses or precomputed hashes
type CreateBanRequest struct {
	IP        string     `json:"ip,omitempty"`
	Net       string     `json:"net,omitempty"`
	IPHash    string     `json:"ip_hash,omitempty"`
	NetHash   string     `json:"net_hash,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Purge     bool       `json:"purge,omitempty"`
}

// BanResult reports a created or updated ban. RemovedCount is best effort.
type BanResult struct {
	Ban          *Ban  `json:"ban"`
	RemovedCount int64 `json:"removed_count"`
}

// QueueRequest pages through comments in a given status for moderators
type QueueRequest struct {
	Status string `form:"status"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// QueueResult is one page of the moderation queue
type QueueResult struct {
	Comments   []ModeratorComment `json:"comments"`
	NextCursor *string            `json:"next_cursor"`
}

// ModeratorPostRequest is a comment authored by a moderator
type ModeratorPostRequest struct {
	ArticleSlug string `json:"-"`
	ParentID    string `json:"parent_id,omitempty"`
	Body        string `json:"body"`
	Alias       string `json:"alias,omitempty"`
	Address     string `json:"-"`
	UserAgent   string `json:"-"`
}
