// Package validation checks request shapes at the API boundary so the
// pipeline can assume well-typed input
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/identity"
	"github.com/anon-comments-api/internal/models"
	"github.com/google/uuid"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Input caps applied before sanitizing; the pipeline enforces the real bounds
const (
	MaxSlugLength      = 255
	MaxRawBodyLength   = 4 * models.MaxBodyLength
	MaxRawAliasLength  = 64
	MaxCaptchaToken    = 4096
	MaxBanReasonLength = 500
	MaxPageLimit       = 50
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ToError folds field errors into a single apperror, or nil when empty
func ToError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Field + ": " + e.Message
	}
	return apperror.Validation(strings.Join(parts, "; "))
}

// Validator provides validation methods
type Validator struct {
	now func() time.Time
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// WithClock overrides the time source used for expiry checks
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// ValidateSubmit validates a visitor submission
func (v *Validator) ValidateSubmit(req *models.SubmitRequest) []ValidationError {
	var errors []ValidationError
	errors = append(errors, validateSlug(req.ArticleSlug)...)
	errors = append(errors, validateOptionalID("parent_id", req.ParentID)...)
	errors = append(errors, validateBody(req.Body)...)

	if utf8.RuneCountInString(req.Alias) > MaxRawAliasLength {
		errors = append(errors, ValidationError{Field: "alias", Message: "alias is too long"})
	}
	if len(req.CaptchaToken) > MaxCaptchaToken {
		errors = append(errors, ValidationError{Field: "captcha_token", Message: "captcha token is too long"})
	}
	return errors
}

// ValidateModeratorPost validates a moderator-authored comment
func (v *Validator) ValidateModeratorPost(req *models.ModeratorPostRequest) []ValidationError {
	var errors []ValidationError
	errors = append(errors, validateSlug(req.ArticleSlug)...)
	errors = append(errors, validateOptionalID("parent_id", req.ParentID)...)
	errors = append(errors, validateBody(req.Body)...)
	if utf8.RuneCountInString(req.Alias) > MaxRawAliasLength {
		errors = append(errors, ValidationError{Field: "alias", Message: "alias is too long"})
	}
	return errors
}

// ValidateList validates a public listing request
func (v *Validator) ValidateList(req *models.ListRequest) []ValidationError {
	var errors []ValidationError
	errors = append(errors, validateSlug(req.ArticleSlug)...)
	errors = append(errors, validatePage(req.Cursor, req.Limit)...)
	return errors
}

// ValidateQueue validates a moderation queue request
func (v *Validator) ValidateQueue(req *models.QueueRequest) []ValidationError {
	var errors []ValidationError
	if req.Status != "" && !models.ValidStatuses[models.Status(req.Status)] {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "must be one of: published, pending, hidden, shadow",
			Value:   req.Status,
		})
	}
	errors = append(errors, validatePage(req.Cursor, req.Limit)...)
	return errors
}

// ValidateReport validates an abuse report
func (v *Validator) ValidateReport(req *models.ReportRequest) []ValidationError {
	var errors []ValidationError
	errors = append(errors, validateID("comment_id", req.CommentID)...)
	if utf8.RuneCountInString(req.Reason) > models.MaxReportReasonLength {
		errors = append(errors, ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("reason must be at most %d characters", models.MaxReportReasonLength),
		})
	}
	if req.ReporterKey != "" && !isValidReporterKey(req.ReporterKey) {
		errors = append(errors, ValidationError{Field: "reporter_key", Message: "invalid reporter key"})
	}
	return errors
}

// ValidateSelfDelete validates a self-delete request
func (v *Validator) ValidateSelfDelete(req *models.SelfDeleteRequest) []ValidationError {
	var errors []ValidationError
	errors = append(errors, validateID("comment_id", req.CommentID)...)
	if strings.TrimSpace(req.EditKey) == "" {
		errors = append(errors, ValidationError{Field: "edit_key", Message: "edit_key is required"})
	}
	return errors
}

// ValidateBanFromComment validates a ban derived from a comment
func (v *Validator) ValidateBanFromComment(req *models.BanFromCommentRequest) []ValidationError {
	var errors []ValidationError
	errors = append(errors, validateID("comment_id", req.CommentID)...)
	if req.Scope != "" && !models.ValidBanScopes[req.Scope] {
		errors = append(errors, ValidationError{Field: "scope", Message: "must be one of: ip, net, both", Value: req.Scope})
	}
	errors = append(errors, v.validateBanTerms(req.Reason, req.ExpiresAt)...)
	return errors
}

// ValidateCreateBan validates a direct ban on raw addresses or hashes
func (v *Validator) ValidateCreateBan(req *models.CreateBanRequest) []ValidationError {
	var errors []ValidationError

	if req.IP == "" && req.Net == "" && req.IPHash == "" && req.NetHash == "" {
		errors = append(errors, ValidationError{Field: "ip", Message: "one of ip, net, ip_hash or net_hash is required"})
	}
	if req.IP != "" && req.IPHash != "" {
		errors = append(errors, ValidationError{Field: "ip_hash", Message: "give either ip or ip_hash, not both"})
	}
	if req.Net != "" && req.NetHash != "" {
		errors = append(errors, ValidationError{Field: "net_hash", Message: "give either net or net_hash, not both"})
	}
	if req.IP != "" && net.ParseIP(strings.TrimSpace(req.IP)) == nil {
		errors = append(errors, ValidationError{Field: "ip", Message: "invalid IP address", Value: req.IP})
	}
	if req.Net != "" && !isValidNetwork(req.Net) {
		errors = append(errors, ValidationError{Field: "net", Message: "expected an IPv4 address or a.b.c.0/24", Value: req.Net})
	}
	if req.IPHash != "" && !identity.IsHash(req.IPHash) {
		errors = append(errors, ValidationError{Field: "ip_hash", Message: "expected 64 hex characters"})
	}
	if req.NetHash != "" && !identity.IsHash(req.NetHash) {
		errors = append(errors, ValidationError{Field: "net_hash", Message: "expected 64 hex characters"})
	}
	errors = append(errors, v.validateBanTerms(req.Reason, req.ExpiresAt)...)
	return errors
}

func (v *Validator) validateBanTerms(reason string, expiresAt *time.Time) []ValidationError {
	var errors []ValidationError
	if utf8.RuneCountInString(reason) > MaxBanReasonLength {
		errors = append(errors, ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("reason must be at most %d characters", MaxBanReasonLength),
		})
	}
	if expiresAt != nil && !expiresAt.After(v.now()) {
		errors = append(errors, ValidationError{Field: "expires_at", Message: "expires_at must be in the future", Value: expiresAt})
	}
	return errors
}

func validateSlug(slug string) []ValidationError {
	if slug == "" {
		return []ValidationError{{Field: "slug", Message: "slug is required"}}
	}
	if len(slug) > MaxSlugLength || !slugRegex.MatchString(slug) {
		return []ValidationError{{Field: "slug", Message: "invalid slug format (must be kebab-case)", Value: slug}}
	}
	return nil
}

func validateID(field, id string) []ValidationError {
	if id == "" {
		return []ValidationError{{Field: field, Message: field + " is required"}}
	}
	if !isValidUUID(id) {
		return []ValidationError{{Field: field, Message: "invalid UUID format", Value: id}}
	}
	return nil
}

func validateOptionalID(field, id string) []ValidationError {
	if id == "" {
		return nil
	}
	return validateID(field, id)
}

func validateBody(body string) []ValidationError {
	if strings.TrimSpace(body) == "" {
		return []ValidationError{{Field: "body", Message: "body is required"}}
	}
	if utf8.RuneCountInString(body) > MaxRawBodyLength {
		return []ValidationError{{Field: "body", Message: fmt.Sprintf("body must be at most %d characters", models.MaxBodyLength)}}
	}
	return nil
}

func validatePage(cursor string, limit int) []ValidationError {
	var errors []ValidationError
	if cursor != "" {
		if _, err := ParseCursor(cursor); err != nil {
			errors = append(errors, ValidationError{Field: "cursor", Message: "invalid cursor", Value: cursor})
		}
	}
	if limit < 0 {
		errors = append(errors, ValidationError{Field: "limit", Message: "limit must not be negative", Value: limit})
	}
	return errors
}

// ParseCursor decodes a page cursor: the RFC3339 created_at of the last root
func ParseCursor(cursor string) (*time.Time, error) {
	if cursor == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatCursor encodes a page cursor
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ClampLimit applies the default page size and the maximum
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

func isValidNetwork(s string) bool {
	s = strings.TrimSpace(s)
	if host, bits, ok := strings.Cut(s, "/"); ok {
		if bits != "24" {
			return false
		}
		s = host
	}
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// NetworkAddress strips an optional /24 suffix from a network given as input
func NetworkAddress(s string) string {
	host, _, _ := strings.Cut(strings.TrimSpace(s), "/")
	return host
}

func isValidReporterKey(key string) bool {
	if len(key) > 64 {
		return false
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// isValidUUID checks if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
