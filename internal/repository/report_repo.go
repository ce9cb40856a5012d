package repository

import (
	"context"
	"fmt"

	"github.com/anon-comments-api/internal/database"
	"github.com/anon-comments-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// reportRepo is the concrete implementation of ReportRepository
type reportRepo struct {
	db *database.DB
}

// NewReportRepo creates a new report repository
func NewReportRepo(db *database.DB) ReportRepository {
	return &reportRepo{db: db}
}

// Create inserts a report unless the reporter already reported the comment
func (r *reportRepo) Create(ctx context.Context, report *models.Report) (bool, error) {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	query := `
		INSERT INTO reports (id, comment_id, reason, reporter_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (comment_id, reporter_key) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, report.ID, report.CommentID, report.Reason, report.ReporterKey)
	if err != nil {
		return false, fmt.Errorf("insert report: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountByComment counts reports against one comment
func (r *reportRepo) CountByComment(ctx context.Context, commentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE comment_id = $1`, commentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

// CountByComments counts reports for a batch of comments in one query.
// Comments without reports are absent from the map.
func (r *reportRepo) CountByComments(ctx context.Context, commentIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(commentIDs) == 0 {
		return counts, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT comment_id, COUNT(*) FROM reports WHERE comment_id = ANY($1::uuid[]) GROUP BY comment_id`,
		pq.Array(commentIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("count reports by comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
