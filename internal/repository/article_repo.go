package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anon-comments-api/internal/database"
	"github.com/anon-comments-api/internal/models"
)

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// GetPublishedBySlug resolves a slug to a published article
func (r *articleRepo) GetPublishedBySlug(ctx context.Context, slug string) (*models.Article, error) {
	query := `
		SELECT id, slug, title, status, COALESCE(alias_template, ''), published_at, created_at
		FROM articles
		WHERE slug = $1 AND status = $2
	`

	var article models.Article
	err := r.db.QueryRowContext(ctx, query, slug, models.ArticleStatusPublished).Scan(
		&article.ID, &article.Slug, &article.Title, &article.Status,
		&article.AliasTemplate, &article.PublishedAt, &article.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article %q: %w", slug, err)
	}

	return &article, nil
}
