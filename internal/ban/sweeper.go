package ban

import (
	"context"
	"sync"
	"time"

	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/lock"
	"github.com/anon-comments-api/internal/metrics"
	"github.com/rs/zerolog"
)

const sweepLockKey = "ban-sweep"

// Sweeper periodically deletes expired bans. With a shared Locker only one
// replica sweeps per tick.
type Sweeper struct {
	enforcer *Enforcer
	locker   lock.Locker
	events   events.Publisher
	interval time.Duration
	log      zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	mu      sync.Mutex
}

// NewSweeper creates a Sweeper
func NewSweeper(enforcer *Enforcer, locker lock.Locker, publisher events.Publisher, interval time.Duration, log zerolog.Logger) *Sweeper {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Sweeper{
		enforcer: enforcer,
		locker:   locker,
		events:   publisher,
		interval: interval,
		log:      log.With().Str("component", "ban-sweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
// It blocks; run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.interval <= 0 {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()
	defer close(s.done)

	s.log.Info().Dur("interval", s.interval).Msg("Ban sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Ban sweeper stopping")
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	s.log.Info().Msg("Ban sweeper stopped")
}

// RunOnce performs a single sweep if the lock is free and returns the number
// of bans deleted
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	release, ok, err := s.locker.Acquire(ctx, sweepLockKey, s.lockTTL())
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not acquire sweep lock")
		return 0
	}
	if !ok {
		s.log.Debug().Msg("Sweep already running elsewhere")
		return 0
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	deleted, err := s.enforcer.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Ban sweep failed")
		return 0
	}
	if deleted == 0 {
		return 0
	}

	metrics.BansTotal.WithLabelValues("swept").Add(float64(deleted))
	s.log.Info().Int64("deleted", deleted).Msg("Expired bans swept")
	if err := s.events.Publish(events.SubjectBansSwept, events.SweepEvent{Deleted: deleted, At: time.Now().UTC()}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish sweep event")
	}
	return deleted
}

// lockTTL keeps the lock shorter than one interval so a crashed holder does
// not skip more than one tick
func (s *Sweeper) lockTTL() time.Duration {
	ttl := s.interval / 2
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
