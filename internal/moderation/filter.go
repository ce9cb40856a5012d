// Package moderation validates and scores comment text. The same rules run
// in two modes: Evaluate collects soft signals for the moderation record,
// ValidateBody turns any signal into a hard rejection.
package moderation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/models"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLinks caps the number of links in one comment
const DefaultMaxLinks = 3

// Config configures a Moderator. Zero values select the defaults.
type Config struct {
	// BannedTerms entries are "term" or "term:severity". Nil selects
	// DefaultBannedTerms; an empty slice disables term matching.
	BannedTerms  []string
	Patterns     []Pattern
	AllowedHosts []string
	MaxLinks     int
}

type term struct {
	text     string
	severity models.Severity
}

// Moderator holds the compiled rule set. It is immutable and safe for
// concurrent use.
type Moderator struct {
	terms        []term
	patterns     []Pattern
	allowedHosts []string
	maxLinks     int
}

// Verdict is the outcome of scoring a comment body
type Verdict struct {
	Sanitized      string
	RequiresReview bool
	Reasons        []models.Reason
	LinkCount      int
	Severity       models.Severity
	Score          int
}

// New compiles a Moderator from cfg
func New(cfg Config) *Moderator {
	m := &Moderator{
		patterns:     cfg.Patterns,
		allowedHosts: normalizeHosts(cfg.AllowedHosts),
		maxLinks:     cfg.MaxLinks,
	}
	if m.patterns == nil {
		m.patterns = DefaultPatterns()
	}
	if len(m.allowedHosts) == 0 {
		m.allowedHosts = DefaultAllowedHosts()
	}
	if m.maxLinks <= 0 {
		m.maxLinks = DefaultMaxLinks
	}
	entries := cfg.BannedTerms
	if entries == nil {
		entries = DefaultBannedTerms()
	}
	seen := make(map[string]bool)
	for _, entry := range entries {
		t := parseTerm(entry)
		if t.text == "" || seen[t.text] {
			continue
		}
		seen[t.text] = true
		m.terms = append(m.terms, t)
	}
	return m
}

// parseTerm splits an optional ":severity" suffix off a banned term
func parseTerm(entry string) term {
	entry = strings.TrimSpace(entry)
	severity := models.SeverityMedium
	if i := strings.LastIndex(entry, ":"); i > 0 {
		switch models.Severity(strings.ToLower(entry[i+1:])) {
		case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
			severity = models.ParseSeverity(entry[i+1:])
			entry = entry[:i]
		}
	}
	return term{text: fold(entry), severity: severity}
}

// fold normalizes text for term matching: NFKC folds full-width and
// compatibility forms, then lower-cases.
func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}

// Sanitize normalizes line endings, drops control characters other than
// newline and tab, and trims surrounding whitespace
func Sanitize(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	body = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, body)
	return strings.TrimSpace(body)
}

// ValidateLength sanitizes body and checks its length bounds
func ValidateLength(body string) (string, error) {
	sanitized := Sanitize(body)
	if sanitized == "" {
		return "", apperror.Validation("comment body is required")
	}
	n := utf8.RuneCountInString(sanitized)
	if n < models.MinBodyLength || n > models.MaxBodyLength {
		return "", apperror.Validationf("comment body must be between %d and %d characters", models.MinBodyLength, models.MaxBodyLength)
	}
	return sanitized, nil
}

// ContainsBannedTerm reports the first banned term found in text
func (m *Moderator) ContainsBannedTerm(text string) (string, bool) {
	folded := fold(text)
	for _, t := range m.terms {
		if strings.Contains(folded, t.text) {
			return t.text, true
		}
	}
	return "", false
}

// Evaluate scores body without rejecting it
func (m *Moderator) Evaluate(body string) Verdict {
	v := Verdict{
		Sanitized: Sanitize(body),
		Severity:  models.SeverityNone,
	}

	if r, score, ok := m.wordReason(v.Sanitized); ok {
		v.Reasons = append(v.Reasons, r)
		v.Score += score
	}

	links := ExtractLinks(v.Sanitized)
	v.LinkCount = len(links)
	if v.LinkCount > m.maxLinks {
		v.Reasons = append(v.Reasons, models.Reason{
			Kind:     models.ReasonLinkCount,
			Count:    v.LinkCount,
			Limit:    m.maxLinks,
			Severity: models.SeverityMedium,
		})
	}
	if hosts := untrustedHosts(links, m.allowedHosts); len(hosts) > 0 {
		v.Reasons = append(v.Reasons, models.Reason{
			Kind:     models.ReasonLinkHost,
			Hosts:    hosts,
			Severity: models.SeverityLow,
		})
	}

	for _, r := range v.Reasons {
		v.Severity = v.Severity.Max(r.Severity)
		if r.Kind != models.ReasonWord {
			v.Score += r.Severity.Rank()
		}
	}
	v.RequiresReview = len(v.Reasons) > 0
	return v
}

// wordReason collects banned terms and pattern hits into a single reason.
// Each distinct hit adds its severity rank to the score.
func (m *Moderator) wordReason(text string) (models.Reason, int, bool) {
	folded := fold(text)
	reason := models.Reason{Kind: models.ReasonWord, Severity: models.SeverityNone}
	seen := make(map[string]bool)
	score := 0

	add := func(name string, sev models.Severity) {
		if seen[name] {
			return
		}
		seen[name] = true
		reason.Terms = append(reason.Terms, name)
		reason.Severity = reason.Severity.Max(sev)
		score += sev.Rank()
	}

	for _, t := range m.terms {
		if strings.Contains(folded, t.text) {
			add(t.text, t.severity)
		}
	}
	for _, p := range m.patterns {
		if p.Expr.MatchString(text) {
			add(p.Name, p.Severity)
		}
	}

	if len(reason.Terms) == 0 {
		return models.Reason{}, 0, false
	}
	return reason, score, true
}

// ValidateBody is the strict path: length bounds plus every Evaluate signal
// become a ValidationError
func (m *Moderator) ValidateBody(body string) error {
	sanitized, err := ValidateLength(body)
	if err != nil {
		return err
	}
	v := m.Evaluate(sanitized)
	if !v.RequiresReview {
		return nil
	}
	switch v.Reasons[0].Kind {
	case models.ReasonWord:
		return apperror.Validation("comment contains prohibited content")
	case models.ReasonLinkCount:
		return apperror.Validationf("comment contains too many links (max %d)", m.maxLinks)
	default:
		return apperror.Validation("links are only allowed to trusted video sites")
	}
}
