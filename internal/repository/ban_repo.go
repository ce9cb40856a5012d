package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anon-comments-api/internal/database"
	"github.com/anon-comments-api/internal/models"
	"github.com/google/uuid"
)

const banColumns = `id, ip_hash, net_hash, reason, expires_at, created_at, updated_at`

// banRepo is the concrete implementation of BanRepository
type banRepo struct {
	db *database.DB
}

// NewBanRepo creates a new ban repository
func NewBanRepo(db *database.DB) BanRepository {
	return &banRepo{db: db}
}

func scanBan(row rowScanner) (*models.Ban, error) {
	var (
		ban     models.Ban
		ipHash  sql.NullString
		netHash sql.NullString
	)
	err := row.Scan(&ban.ID, &ipHash, &netHash, &ban.Reason, &ban.ExpiresAt, &ban.CreatedAt, &ban.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ban.IPHash = ipHash.String
	ban.NetHash = netHash.String
	return &ban, nil
}

// Create inserts a new ban
func (r *banRepo) Create(ctx context.Context, ban *models.Ban) error {
	if ban.ID == "" {
		ban.ID = uuid.New().String()
	}
	query := `
		INSERT INTO bans (id, ip_hash, net_hash, reason, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ban.ID, nullString(ban.IPHash), nullString(ban.NetHash), ban.Reason, ban.ExpiresAt,
	).Scan(&ban.CreatedAt, &ban.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

// Update replaces reason and expiry of an existing ban
func (r *banRepo) Update(ctx context.Context, ban *models.Ban) error {
	query := `
		UPDATE bans SET reason = $1, expires_at = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, ban.Reason, ban.ExpiresAt, ban.ID).Scan(&ban.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update ban %s: %w", ban.ID, err)
	}
	return nil
}

// GetByID retrieves a ban by ID
func (r *banRepo) GetByID(ctx context.Context, id string) (*models.Ban, error) {
	ban, err := scanBan(r.db.QueryRowContext(ctx, `SELECT `+banColumns+` FROM bans WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ban %s: %w", id, err)
	}
	return ban, nil
}

// FindByHashes returns the ban covering exactly this hash set
func (r *banRepo) FindByHashes(ctx context.Context, ipHash, netHash string) (*models.Ban, error) {
	query := `
		SELECT ` + banColumns + `
		FROM bans
		WHERE ip_hash IS NOT DISTINCT FROM $1 AND net_hash IS NOT DISTINCT FROM $2
		ORDER BY created_at
		LIMIT 1
	`
	ban, err := scanBan(r.db.QueryRowContext(ctx, query, nullString(ipHash), nullString(netHash)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ban by hashes: %w", err)
	}
	return ban, nil
}

// CountActive counts unexpired bans matching either hash
func (r *banRepo) CountActive(ctx context.Context, ipHash, netHash string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bans
		WHERE (ip_hash = $1 OR net_hash = $2)
		  AND (expires_at IS NULL OR expires_at > $3)
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, nullString(ipHash), nullString(netHash), now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active bans: %w", err)
	}
	return count, nil
}

// List returns the most recent bans
func (r *banRepo) List(ctx context.Context, limit int) ([]*models.Ban, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+banColumns+` FROM bans ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var bans []*models.Ban
	for rows.Next() {
		ban, err := scanBan(rows)
		if err != nil {
			return nil, err
		}
		bans = append(bans, ban)
	}
	return bans, rows.Err()
}

// Delete removes a ban, reporting whether it existed
func (r *banRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bans WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete ban %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// DeleteExpired removes every ban whose expiry has passed
func (r *banRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bans WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired bans: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns nil for empty strings so they are stored as NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
