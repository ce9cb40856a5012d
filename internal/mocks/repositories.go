package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/repository"
	"github.com/google/uuid"
)

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	mu       sync.Mutex
	Articles map[string]*models.Article // keyed by slug
	GetError error
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{Articles: make(map[string]*models.Article)}
}

// Add stores a published article and returns it
func (m *MockArticleRepository) Add(slug, aliasTemplate string) *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	a := &models.Article{
		ID:            uuid.New().String(),
		Slug:          slug,
		Title:         slug,
		Status:        models.ArticleStatusPublished,
		AliasTemplate: aliasTemplate,
		PublishedAt:   &now,
		CreatedAt:     now,
	}
	m.Articles[slug] = a
	return a
}

func (m *MockArticleRepository) GetPublishedBySlug(ctx context.Context, slug string) (*models.Article, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Articles[slug]
	if !ok || a.Status != models.ArticleStatusPublished {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

// MockCommentRepository is an in-memory CommentRepository. Now stamps
// created_at the way the database default would.
type MockCommentRepository struct {
	mu          sync.Mutex
	Comments    map[string]*models.Comment
	order       []string
	Now         func() time.Time
	CreateError error
	DeleteError error
	Updates     int
}

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		Comments: make(map[string]*models.Comment),
		Now:      time.Now,
	}
}

func copyComment(c *models.Comment) *models.Comment {
	copied := *c
	copied.Meta.Moderation.Reasons = append([]models.Reason(nil), c.Meta.Moderation.Reasons...)
	return &copied
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = m.Now()
	}
	m.Comments[comment.ID] = copyComment(comment)
	m.order = append(m.order, comment.ID)
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	return copyComment(c), nil
}

func (m *MockCommentRepository) UpdateState(ctx context.Context, id string, status models.Status, meta models.Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil
	}
	c.Status = status
	c.Meta = meta
	m.Updates++
	return nil
}

func (m *MockCommentRepository) CountByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Comments {
		if c.IPHash == ipHash && c.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

// sorted returns comments matching keep, newest first
func (m *MockCommentRepository) sorted(keep func(*models.Comment) bool) []*models.Comment {
	var out []*models.Comment
	seq := make(map[string]int, len(m.order))
	for i, id := range m.order {
		seq[id] = i
		if c, ok := m.Comments[id]; ok && keep(c) {
			out = append(out, copyComment(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seq[out[i].ID] > seq[out[j].ID]
	})
	return out
}

func (m *MockCommentRepository) RecentBodiesByIPHash(ctx context.Context, ipHash string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bodies []string
	for _, c := range m.sorted(func(c *models.Comment) bool { return c.IPHash == ipHash }) {
		if len(bodies) == limit {
			break
		}
		bodies = append(bodies, c.Body)
	}
	return bodies, nil
}

func page(comments []*models.Comment, before *time.Time, limit int) []*models.Comment {
	var out []*models.Comment
	for _, c := range comments {
		if before != nil && !c.CreatedAt.Before(*before) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out
}

func (m *MockCommentRepository) ListRoots(ctx context.Context, articleID string, status models.Status, before *time.Time, limit int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(c *models.Comment) bool {
		return c.ArticleID == articleID && c.ParentID == nil && !c.Orphaned && c.Status == status
	})
	return page(all, before, limit), nil
}

func (m *MockCommentRepository) ListChildren(ctx context.Context, parentIDs []string, status models.Status) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parents := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	out := m.sorted(func(c *models.Comment) bool {
		return c.ParentID != nil && parents[*c.ParentID] && c.Status == status
	})
	// oldest first, like the SQL implementation
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *MockCommentRepository) ListByStatus(ctx context.Context, status models.Status, before *time.Time, limit int) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(c *models.Comment) bool { return c.Status == status })
	return page(all, before, limit), nil
}

func (m *MockCommentRepository) DeleteByHashes(ctx context.Context, ipHashes, netHashes []string) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	match := make(map[string]bool)
	for _, h := range ipHashes {
		match["ip:"+h] = true
	}
	for _, h := range netHashes {
		match["net:"+h] = true
	}
	gone := make(map[string]bool)
	for id, c := range m.Comments {
		if match["ip:"+c.IPHash] || match["net:"+c.NetHash] {
			gone[id] = true
		}
	}
	for id := range gone {
		delete(m.Comments, id)
	}
	// surviving replies keep their row but lose the parent, like ON DELETE SET NULL
	for _, c := range m.Comments {
		if c.ParentID != nil && gone[*c.ParentID] {
			c.ParentID = nil
			c.Orphaned = true
		}
	}
	return int64(len(gone)), nil
}

// MockBanRepository is an in-memory BanRepository
type MockBanRepository struct {
	mu       sync.Mutex
	Bans     map[string]*models.Ban
	CountErr error
}

func NewMockBanRepository() *MockBanRepository {
	return &MockBanRepository{Bans: make(map[string]*models.Ban)}
}

func (m *MockBanRepository) Create(ctx context.Context, ban *models.Ban) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ban.ID == "" {
		ban.ID = uuid.New().String()
	}
	now := time.Now()
	ban.CreatedAt, ban.UpdatedAt = now, now
	copied := *ban
	m.Bans[ban.ID] = &copied
	return nil
}

func (m *MockBanRepository) Update(ctx context.Context, ban *models.Ban) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Bans[ban.ID]
	if !ok {
		return nil
	}
	ban.UpdatedAt = time.Now()
	stored.Reason = ban.Reason
	stored.ExpiresAt = ban.ExpiresAt
	stored.UpdatedAt = ban.UpdatedAt
	return nil
}

func (m *MockBanRepository) GetByID(ctx context.Context, id string) (*models.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Bans[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (m *MockBanRepository) FindByHashes(ctx context.Context, ipHash, netHash string) (*models.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Bans {
		if b.IPHash == ipHash && b.NetHash == netHash {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockBanRepository) CountActive(ctx context.Context, ipHash, netHash string, now time.Time) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.Bans {
		matches := (ipHash != "" && b.IPHash == ipHash) || (netHash != "" && b.NetHash == netHash)
		if matches && b.IsActive(now) {
			n++
		}
	}
	return n, nil
}

func (m *MockBanRepository) List(ctx context.Context, limit int) ([]*models.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Ban
	for _, b := range m.Bans {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockBanRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Bans[id]; !ok {
		return false, nil
	}
	delete(m.Bans, id)
	return true, nil
}

func (m *MockBanRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.Bans {
		if !b.IsActive(now) {
			delete(m.Bans, id)
			n++
		}
	}
	return n, nil
}

// MockReportRepository is an in-memory ReportRepository enforcing one
// report per (comment, reporter)
type MockReportRepository struct {
	mu      sync.Mutex
	Reports []*models.Report
}

func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{}
}

func (m *MockReportRepository) Create(ctx context.Context, report *models.Report) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Reports {
		if r.CommentID == report.CommentID && r.ReporterKey == report.ReporterKey {
			return false, nil
		}
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	report.CreatedAt = time.Now()
	copied := *report
	m.Reports = append(m.Reports, &copied)
	return true, nil
}

func (m *MockReportRepository) CountByComment(ctx context.Context, commentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.Reports {
		if r.CommentID == commentID {
			n++
		}
	}
	return n, nil
}

func (m *MockReportRepository) CountByComments(ctx context.Context, commentIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(commentIDs))
	for _, id := range commentIDs {
		wanted[id] = true
	}
	counts := make(map[string]int)
	for _, r := range m.Reports {
		if wanted[r.CommentID] {
			counts[r.CommentID]++
		}
	}
	return counts, nil
}

// NewRepositories wires a fresh set of in-memory repositories
func NewRepositories() (*repository.Repositories, *MockArticleRepository, *MockCommentRepository, *MockBanRepository, *MockReportRepository) {
	articles := NewMockArticleRepository()
	comments := NewMockCommentRepository()
	bans := NewMockBanRepository()
	reports := NewMockReportRepository()
	return &repository.Repositories{
		Article: articles,
		Comment: comments,
		Ban:     bans,
		Report:  reports,
	}, articles, comments, bans, reports
}

// Verify interface compliance
var (
	_ repository.ArticleRepository = (*MockArticleRepository)(nil)
	_ repository.CommentRepository = (*MockCommentRepository)(nil)
	_ repository.BanRepository     = (*MockBanRepository)(nil)
	_ repository.ReportRepository  = (*MockReportRepository)(nil)
)
