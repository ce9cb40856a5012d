package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anon-comments-api/internal/database"
	"github.com/anon-comments-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const commentColumns = `id, article_id, parent_id, orphaned, body, alias, is_moderator, ip_hash, net_hash, edit_key_hash, status, meta, created_at`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var (
		comment  models.Comment
		parentID sql.NullString
		status   string
		meta     []byte
	)
	err := row.Scan(
		&comment.ID, &comment.ArticleID, &parentID, &comment.Orphaned, &comment.Body, &comment.Alias,
		&comment.IsModerator, &comment.IPHash, &comment.NetHash, &comment.EditKeyHash,
		&status, &meta, &comment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		comment.ParentID = &parentID.String
	}
	comment.Status = models.NormalizeStatus(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &comment.Meta); err != nil {
			return nil, fmt.Errorf("decode meta for comment %s: %w", comment.ID, err)
		}
	}
	return &comment, nil
}

func (r *commentRepo) queryComments(ctx context.Context, query string, args ...interface{}) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// Create inserts a new comment; the store assigns created_at
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	meta, err := json.Marshal(comment.Meta)
	if err != nil {
		return fmt.Errorf("encode comment meta: %w", err)
	}

	query := `
		INSERT INTO comments (id, article_id, parent_id, body, alias, is_moderator, ip_hash, net_hash, edit_key_hash, status, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		comment.ID, comment.ArticleID, comment.ParentID, comment.Body, comment.Alias,
		comment.IsModerator, comment.IPHash, comment.NetHash, comment.EditKeyHash,
		string(comment.Status), meta,
	).Scan(&comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", id, err)
	}
	return comment, nil
}

// UpdateState overwrites status and meta. edit_key_hash is never touched.
func (r *commentRepo) UpdateState(ctx context.Context, id string, status models.Status, meta models.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode comment meta: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE comments SET status = $1, meta = $2 WHERE id = $3`,
		string(status), data, id,
	)
	if err != nil {
		return fmt.Errorf("update comment %s: %w", id, err)
	}
	return nil
}

// CountByIPHashSince counts comments from ipHash created after since
func (r *commentRepo) CountByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE ip_hash = $1 AND created_at > $2`,
		ipHash, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments by ip hash: %w", err)
	}
	return count, nil
}

// RecentBodiesByIPHash returns the latest bodies from ipHash, newest first
func (r *commentRepo) RecentBodiesByIPHash(ctx context.Context, ipHash string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT body FROM comments WHERE ip_hash = $1 ORDER BY created_at DESC LIMIT $2`,
		ipHash, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent comments by ip hash: %w", err)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}

// ListRoots returns a page of top-level comments for an article. Orphaned
// replies have no parent but are not top-level.
func (r *commentRepo) ListRoots(ctx context.Context, articleID string, status models.Status, before *time.Time, limit int) ([]*models.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE article_id = $1 AND parent_id IS NULL AND NOT orphaned AND status = $2
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	comments, err := r.queryComments(ctx, query, articleID, string(status), before, limit)
	if err != nil {
		return nil, fmt.Errorf("list root comments: %w", err)
	}
	return comments, nil
}

// ListChildren returns the direct replies to any of parentIDs, oldest first
func (r *commentRepo) ListChildren(ctx context.Context, parentIDs []string, status models.Status) ([]*models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE parent_id = ANY($1::uuid[]) AND status = $2
		ORDER BY created_at ASC
	`
	comments, err := r.queryComments(ctx, query, pq.Array(parentIDs), string(status))
	if err != nil {
		return nil, fmt.Errorf("list child comments: %w", err)
	}
	return comments, nil
}

// ListByStatus pages through all comments in a status, newest first
func (r *commentRepo) ListByStatus(ctx context.Context, status models.Status, before *time.Time, limit int) ([]*models.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE status = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	comments, err := r.queryComments(ctx, query, string(status), before, limit)
	if err != nil {
		return nil, fmt.Errorf("list comments by status: %w", err)
	}
	return comments, nil
}

// purgeMatch selects comments written from any of the listed hashes
const purgeMatch = `(ip_hash = ANY($1::text[]) OR net_hash = ANY($2::text[]))`

// DeleteByHashes deletes comments matching any of the hashes. Replies from
// other identities under a deleted comment are kept and marked orphaned; the
// foreign key sets their parent_id to NULL.
func (r *commentRepo) DeleteByHashes(ctx context.Context, ipHashes, netHashes []string) (int64, error) {
	if len(ipHashes) == 0 && len(netHashes) == 0 {
		return 0, nil
	}
	// A nil slice would encode as NULL and turn the NOT below into NULL
	ips, nets := pq.Array(append([]string{}, ipHashes...)), pq.Array(append([]string{}, netHashes...))

	var removed int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE comments SET orphaned = TRUE
			WHERE parent_id IN (SELECT id FROM comments WHERE `+purgeMatch+`)
			  AND NOT `+purgeMatch,
			ips, nets,
		)
		if err != nil {
			return fmt.Errorf("orphan replies: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE `+purgeMatch, ips, nets)
		if err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete comments by hashes: %w", err)
	}
	return removed, nil
}
