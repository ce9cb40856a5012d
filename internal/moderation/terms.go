package moderation

// defaultBannedTerms covers threats, self-harm incitement, sexual
// solicitation, hate slogans and common scam bait. Operators replace the
// whole list through configuration.
var defaultBannedTerms = []string{
	"kill yourself:high",
	"bomb threat:high",
	"i will kill you:high",
	"child porn:high",
	"send nudes:high",
	"heil hitler:high",
	"white power:high",
	"free bitcoin:medium",
	"crypto giveaway:medium",
	"double your money:medium",
	"work from home and earn:medium",
	"死ね:high",
	"殺すぞ:high",
}

// DefaultBannedTerms returns the built-in banned term list, in the same
// "term" or "term:severity" form as Config.BannedTerms
func DefaultBannedTerms() []string {
	out := make([]string, len(defaultBannedTerms))
	copy(out, defaultBannedTerms)
	return out
}
