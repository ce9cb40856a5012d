// Package ratelimit throttles submissions per identity. Counts come from the
// comments already stored, so nothing is incremented here and concurrent
// submissions from one identity may both pass.
package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/rs/zerolog"
)

// Window is a trailing time bucket with its own limit. A zero limit
// disables the window.
type Window struct {
	Name     string
	Duration time.Duration
	Limit    int
}

// DefaultWindows builds the minute/hour/day windows
func DefaultWindows(perMinute, perHour, perDay int) []Window {
	return []Window{
		{Name: "minute", Duration: time.Minute, Limit: perMinute},
		{Name: "hour", Duration: time.Hour, Limit: perHour},
		{Name: "day", Duration: 24 * time.Hour, Limit: perDay},
	}
}

// CommentCounter counts an identity's comments created after a point in time
type CommentCounter interface {
	CountByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int, error)
}

// Limiter enforces the configured windows
type Limiter struct {
	counter CommentCounter
	windows []Window
	now     func() time.Time
	log     zerolog.Logger
}

// NewLimiter creates a Limiter. Windows are evaluated shortest first.
func NewLimiter(counter CommentCounter, windows []Window, log zerolog.Logger) *Limiter {
	sorted := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Limit > 0 && w.Duration > 0 {
			sorted = append(sorted, w)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Duration < sorted[j].Duration
	})
	return &Limiter{
		counter: counter,
		windows: sorted,
		now:     time.Now,
		log:     log.With().Str("component", "ratelimit").Logger(),
	}
}

// WithClock overrides the time source
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Windows returns the enabled windows in evaluation order
func (l *Limiter) Windows() []Window {
	return l.windows
}

// Enforce returns a RateLimited error for the first window whose count has
// reached its limit
func (l *Limiter) Enforce(ctx context.Context, ipHash string) error {
	now := l.now()
	for _, w := range l.windows {
		count, err := l.counter.CountByIPHashSince(ctx, ipHash, now.Add(-w.Duration))
		if err != nil {
			return apperror.Internal(fmt.Errorf("count comments for %s window: %w", w.Name, err))
		}
		if count >= w.Limit {
			l.log.Info().
				Str("window", w.Name).
				Int("count", count).
				Int("limit", w.Limit).
				Str("ip_hash", shortHash(ipHash)).
				Msg("Rate limit exceeded")
			return apperror.RateLimited()
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
