// Package ban checks, creates and expires bans on hashed identities
package ban

import (
	"context"
	"fmt"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/repository"
	"github.com/rs/zerolog"
)

// CommentPurger bulk-deletes comments by hash
type CommentPurger interface {
	DeleteByHashes(ctx context.Context, ipHashes, netHashes []string) (int64, error)
}

// Hashes is the hash set a ban covers. Either field may be empty, not both.
type Hashes struct {
	IP  string
	Net string
}

// Empty reports whether neither hash is set
func (h Hashes) Empty() bool {
	return h.IP == "" && h.Net == ""
}

// HashesForScope picks the hashes of comment that scope covers
func HashesForScope(scope models.BanScope, comment *models.Comment) Hashes {
	switch scope {
	case models.BanScopeIP:
		return Hashes{IP: comment.IPHash}
	case models.BanScopeNet:
		return Hashes{Net: comment.NetHash}
	default:
		return Hashes{IP: comment.IPHash, Net: comment.NetHash}
	}
}

// Enforcer applies bans
type Enforcer struct {
	bans     repository.BanRepository
	comments CommentPurger
	now      func() time.Time
	log      zerolog.Logger
}

// NewEnforcer creates an Enforcer
func NewEnforcer(bans repository.BanRepository, comments CommentPurger, log zerolog.Logger) *Enforcer {
	return &Enforcer{
		bans:     bans,
		comments: comments,
		now:      time.Now,
		log:      log.With().Str("component", "ban").Logger(),
	}
}

// WithClock overrides the time source
func (e *Enforcer) WithClock(now func() time.Time) *Enforcer {
	e.now = now
	return e
}

// IsBanned reports whether an active ban matches either hash
func (e *Enforcer) IsBanned(ctx context.Context, h Hashes) (bool, error) {
	if h.Empty() {
		return false, nil
	}
	n, err := e.bans.CountActive(ctx, h.IP, h.Net, e.now())
	if err != nil {
		return false, apperror.Internal(fmt.Errorf("check bans: %w", err))
	}
	return n > 0, nil
}

// CreateOrUpdate bans the hash set, updating reason and expiry of an
// existing ban on the same set instead of adding another row
func (e *Enforcer) CreateOrUpdate(ctx context.Context, h Hashes, reason string, expiresAt *time.Time) (*models.Ban, bool, error) {
	if h.Empty() {
		return nil, false, apperror.Validation("a ban needs an address or network hash")
	}

	existing, err := e.bans.FindByHashes(ctx, h.IP, h.Net)
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	if existing != nil {
		existing.Reason = reason
		existing.ExpiresAt = expiresAt
		if err := e.bans.Update(ctx, existing); err != nil {
			return nil, false, apperror.Internal(err)
		}
		e.log.Info().Str("ban_id", existing.ID).Msg("Ban updated")
		return existing, false, nil
	}

	ban := &models.Ban{
		IPHash:    h.IP,
		NetHash:   h.Net,
		Reason:    reason,
		ExpiresAt: expiresAt,
	}
	if err := e.bans.Create(ctx, ban); err != nil {
		return nil, false, apperror.Internal(err)
	}
	e.log.Info().
		Str("ban_id", ban.ID).
		Bool("ip", h.IP != "").
		Bool("net", h.Net != "").
		Bool("permanent", expiresAt == nil).
		Msg("Ban created")
	return ban, true, nil
}

// PurgeMatching deletes comments whose hashes match h. It is best effort:
// a failure is logged and reported as zero removed rows.
func (e *Enforcer) PurgeMatching(ctx context.Context, h Hashes) int64 {
	var ipHashes, netHashes []string
	if h.IP != "" {
		ipHashes = []string{h.IP}
	}
	if h.Net != "" {
		netHashes = []string{h.Net}
	}
	removed, err := e.comments.DeleteByHashes(ctx, ipHashes, netHashes)
	if err != nil {
		e.log.Error().Err(err).Msg("Ban purge failed; ban was kept")
		return 0
	}
	e.log.Info().Int64("removed", removed).Msg("Purged comments for ban")
	return removed
}

// Get returns a ban or NotFound
func (e *Enforcer) Get(ctx context.Context, id string) (*models.Ban, error) {
	ban, err := e.bans.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if ban == nil {
		return nil, apperror.NotFound("ban")
	}
	return ban, nil
}

// List returns the most recent bans
func (e *Enforcer) List(ctx context.Context, limit int) ([]*models.Ban, error) {
	bans, err := e.bans.List(ctx, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return bans, nil
}

// Delete lifts a ban
func (e *Enforcer) Delete(ctx context.Context, id string) error {
	ok, err := e.bans.Delete(ctx, id)
	if err != nil {
		return apperror.Internal(err)
	}
	if !ok {
		return apperror.NotFound("ban")
	}
	e.log.Info().Str("ban_id", id).Msg("Ban deleted")
	return nil
}

// Sweep deletes expired bans. IsBanned ignores them regardless.
func (e *Enforcer) Sweep(ctx context.Context) (int64, error) {
	n, err := e.bans.DeleteExpired(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired bans: %w", err)
	}
	return n, nil
}
