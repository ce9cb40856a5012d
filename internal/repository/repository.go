package repository

import (
	"context"
	"time"

	"github.com/anon-comments-api/internal/database"
	"github.com/anon-comments-api/internal/models"
)

// Lookups by id return (nil, nil) when the row does not exist.

// ArticleRepository resolves commentable articles
type ArticleRepository interface {
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Article, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateState(ctx context.Context, id string, status models.Status, meta models.Meta) error
	CountByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int, error)
	RecentBodiesByIPHash(ctx context.Context, ipHash string, limit int) ([]string, error)
	// ListRoots returns top-level comments newest first, strictly older than before when set
	ListRoots(ctx context.Context, articleID string, status models.Status, before *time.Time, limit int) ([]*models.Comment, error)
	ListChildren(ctx context.Context, parentIDs []string, status models.Status) ([]*models.Comment, error)
	ListByStatus(ctx context.Context, status models.Status, before *time.Time, limit int) ([]*models.Comment, error)
	// DeleteByHashes removes every comment whose ip_hash or net_hash is listed.
	// Surviving replies to a removed comment lose their parent and are marked
	// orphaned. The count covers removed comments only.
	DeleteByHashes(ctx context.Context, ipHashes, netHashes []string) (int64, error)
}

// BanRepository defines the interface for ban data operations
type BanRepository interface {
	Create(ctx context.Context, ban *models.Ban) error
	Update(ctx context.Context, ban *models.Ban) error
	GetByID(ctx context.Context, id string) (*models.Ban, error)
	// FindByHashes matches the exact hash set; an empty hash matches NULL
	FindByHashes(ctx context.Context, ipHash, netHash string) (*models.Ban, error)
	CountActive(ctx context.Context, ipHash, netHash string, now time.Time) (int, error)
	List(ctx context.Context, limit int) ([]*models.Ban, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ReportRepository defines the interface for report data operations
type ReportRepository interface {
	// Create returns false when the reporter already reported the comment
	Create(ctx context.Context, report *models.Report) (bool, error)
	CountByComment(ctx context.Context, commentID string) (int, error)
	CountByComments(ctx context.Context, commentIDs []string) (map[string]int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article ArticleRepository
	Comment CommentRepository
	Ban     BanRepository
	Report  ReportRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article: NewArticleRepo(db),
		Comment: NewCommentRepo(db),
		Ban:     NewBanRepo(db),
		Report:  NewReportRepo(db),
	}
}
