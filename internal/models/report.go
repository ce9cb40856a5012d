package models

import (
	"time"
)

// Report is an abuse report filed against a comment
type Report struct {
	ID          string    `json:"id" db:"id"`
	CommentID   string    `json:"comment_id" db:"comment_id"`
	Reason      string    `json:"reason" db:"reason"`
	ReporterKey string    `json:"-" db:"reporter_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// MaxReportReasonLength caps the free-text report reason
const MaxReportReasonLength = 500
