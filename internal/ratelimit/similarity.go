package ratelimit

import (
	"context"
	"fmt"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/rs/zerolog"
)

const (
	DefaultHistory   = 5
	DefaultThreshold = 0.9
)

// RecentBodies returns an identity's latest comment bodies, newest first
type RecentBodies interface {
	RecentBodiesByIPHash(ctx context.Context, ipHash string, limit int) ([]string, error)
}

// Detector rejects near-duplicates of an identity's recent comments
type Detector struct {
	store     RecentBodies
	history   int
	threshold float64
	log       zerolog.Logger
}

// NewDetector creates a Detector. Non-positive values select the defaults.
func NewDetector(store RecentBodies, history int, threshold float64, log zerolog.Logger) *Detector {
	if history <= 0 {
		history = DefaultHistory
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Detector{
		store:     store,
		history:   history,
		threshold: threshold,
		log:       log.With().Str("component", "similarity").Logger(),
	}
}

// Detect returns TooSimilar when body's ratio against any recent comment
// exceeds the threshold
func (d *Detector) Detect(ctx context.Context, ipHash, body string) error {
	recent, err := d.store.RecentBodiesByIPHash(ctx, ipHash, d.history)
	if err != nil {
		return apperror.Internal(fmt.Errorf("load recent comments: %w", err))
	}
	for _, prev := range recent {
		if r := Ratio(body, prev); r > d.threshold {
			d.log.Info().
				Float64("ratio", r).
				Str("ip_hash", shortHash(ipHash)).
				Msg("Near-duplicate comment rejected")
			return apperror.TooSimilar()
		}
	}
	return nil
}

// Ratio counts positions where the two strings hold the same character and
// divides by the longer length. Reordered text scores low.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return 1
	}
	matches := 0
	for i := range ra {
		if ra[i] == rb[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(rb))
}
