package models

import (
	"fmt"
	"strings"
)

// Severity grades a moderation signal
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityNone:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank orders severities from none (0) to high (3)
func (s Severity) Rank() int {
	return severityRank[s]
}

// Max returns the more severe of s and o
func (s Severity) Max(o Severity) Severity {
	if o.Rank() > s.Rank() {
		return o
	}
	if s == "" {
		return SeverityNone
	}
	return s
}

// ParseSeverity parses a severity name, defaulting to medium
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; ok {
		return sev
	}
	return SeverityMedium
}

// ReasonKind is the trigger category of a moderation reason
type ReasonKind string

const (
	ReasonWord      ReasonKind = "word"
	ReasonLinkCount ReasonKind = "link-count"
	ReasonLinkHost  ReasonKind = "link-host"
)

// Reason is one moderation trigger with enough detail to explain it
type Reason struct {
	Kind     ReasonKind `json:"kind"`
	Terms    []string   `json:"terms,omitempty"`
	Count    int        `json:"count,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Hosts    []string   `json:"hosts,omitempty"`
	Severity Severity   `json:"severity"`
}

// Note renders the reason as a moderator-facing sentence
func (r Reason) Note() string {
	switch r.Kind {
	case ReasonWord:
		return "contains flagged terms: " + strings.Join(r.Terms, ", ")
	case ReasonLinkCount:
		return fmt.Sprintf("too many links (%d, limit %d)", r.Count, r.Limit)
	case ReasonLinkHost:
		return "links to untrusted hosts: " + strings.Join(r.Hosts, ", ")
	default:
		return string(r.Kind)
	}
}
