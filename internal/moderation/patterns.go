package moderation

import (
	"regexp"

	"github.com/anon-comments-api/internal/models"
)

// Pattern is a regex-based signal with a fixed severity
type Pattern struct {
	Name     string
	Expr     *regexp.Regexp
	Severity models.Severity
}

// Compiled once at package init and shared; regexp.Regexp is safe for
// concurrent use.
var (
	// phonePattern matches formats such as +1-555-123-4567, (555) 123-4567,
	// 090-1234-5678. Anchored to whitespace so short numbers like "100" pass.
	phonePattern = regexp.MustCompile(`(?:^|\s)(\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}(?:\s|$)`)

	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

	// invitePattern matches chat invite links, a common spam payload
	invitePattern = regexp.MustCompile(`(?i)\b(discord\.gg|discord\.com/invite|t\.me|line\.me/ti)/\S+`)

	// floodPattern matches a run of ten or more of the same punctuation or
	// symbol, which RE2 can express without backreferences per character class
	floodPattern = regexp.MustCompile(`[!?！？wｗ草]{10,}`)
)

// DefaultPatterns returns the built-in pattern signals
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "phone", Expr: phonePattern, Severity: models.SeverityMedium},
		{Name: "email", Expr: emailPattern, Severity: models.SeverityLow},
		{Name: "invite", Expr: invitePattern, Severity: models.SeverityHigh},
		{Name: "flood", Expr: floodPattern, Severity: models.SeverityLow},
	}
}
