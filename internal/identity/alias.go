package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anon-comments-api/internal/apperror"
)

const (
	MinAliasLength = 2
	MaxAliasLength = 24

	// DefaultAliasPhrase is used when an article has no alias template
	DefaultAliasPhrase = "Anonymous"

	fragmentWidth = 4
	dateLayout    = "2006-01-02"
)

// fragmentSpace is 36^fragmentWidth, the number of distinct fragments
const fragmentSpace = 36 * 36 * 36 * 36

// TermChecker finds banned terms in free text
type TermChecker interface {
	ContainsBannedTerm(text string) (string, bool)
}

// Alias is a resolved display name
type Alias struct {
	Name     string
	Provided bool // true when the visitor chose it
}

// AliasResolver validates chosen names and derives daily pseudonyms
type AliasResolver struct {
	salt          []byte
	terms         TermChecker
	loc           *time.Location
	defaultPhrase string
	now           func() time.Time
}

// NewAliasResolver creates a resolver. loc decides when a pseudonym rolls
// over to the next day. An empty defaultPhrase selects DefaultAliasPhrase.
func NewAliasResolver(salt string, terms TermChecker, loc *time.Location, defaultPhrase string, now func() time.Time) *AliasResolver {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if defaultPhrase == "" {
		defaultPhrase = DefaultAliasPhrase
	}
	return &AliasResolver{
		salt:          []byte(salt),
		terms:         terms,
		loc:           loc,
		defaultPhrase: defaultPhrase,
		now:           now,
	}
}

// Resolve returns the requested alias when one is given and valid, or a
// pseudonym derived from the address, article and current date.
func (r *AliasResolver) Resolve(requested, template, address, articleID string) (Alias, error) {
	name := strings.TrimSpace(requested)
	if name != "" {
		if err := r.Validate(name); err != nil {
			return Alias{}, err
		}
		return Alias{Name: name, Provided: true}, nil
	}

	fragment := r.Fragment(address, articleID, r.now())
	return Alias{Name: r.ApplyTemplate(template, fragment)}, nil
}

// Validate checks a visitor-chosen alias
func (r *AliasResolver) Validate(name string) error {
	length := utf8.RuneCountInString(name)
	if length < MinAliasLength || length > MaxAliasLength {
		return apperror.Validationf("alias must be between %d and %d characters", MinAliasLength, MaxAliasLength)
	}
	for _, ch := range name {
		if ch < 0x20 || ch == 0x7f {
			return apperror.Validation("alias contains control characters")
		}
	}
	if r.terms != nil {
		if _, found := r.terms.ContainsBannedTerm(name); found {
			return apperror.Validation("alias contains a prohibited word")
		}
	}
	return nil
}

// Fragment derives the base-36 pseudonym fragment for a day. It is stable
// for a given address, article and calendar date in the resolver's zone.
func (r *AliasResolver) Fragment(address, articleID string, at time.Time) string {
	day := at.In(r.loc).Format(dateLayout)

	mac := hmac.New(sha256.New, r.salt)
	mac.Write([]byte(string(r.salt) + ":" + canonicalAddress(address) + ":" + articleID + ":" + day))
	digest := mac.Sum(nil)

	n := binary.BigEndian.Uint32(digest[:4]) % fragmentSpace
	fragment := strconv.FormatUint(uint64(n), 36)
	if pad := fragmentWidth - len(fragment); pad > 0 {
		fragment = strings.Repeat("0", pad) + fragment
	}
	return fragment
}

// ApplyTemplate substitutes the fragment into a "{hash}" or "%s" placeholder.
// Templates without a placeholder are used verbatim.
func (r *AliasResolver) ApplyTemplate(template, fragment string) string {
	template = strings.TrimSpace(template)
	switch {
	case template == "":
		return r.defaultPhrase
	case strings.Contains(template, "{hash}"):
		return strings.Replace(template, "{hash}", fragment, 1)
	case strings.Contains(template, "%s"):
		return strings.Replace(template, "%s", fragment, 1)
	default:
		return template
	}
}
