package mocks

import (
	"context"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/service"
)

// MockCommentService is a mock implementation of CommentService. Nil
// func fields fall back to canned successful responses.
type MockCommentService struct {
	SubmitFunc     func(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResult, error)
	ListFunc       func(ctx context.Context, req *models.ListRequest) (*models.ListResult, error)
	ReportFunc     func(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error)
	SelfDeleteFunc func(ctx context.Context, req *models.SelfDeleteRequest) error

	Submitted []*models.SubmitRequest
	Reported  []*models.ReportRequest
	Deleted   []*models.SelfDeleteRequest
}

// Verify interface compliance
var _ service.CommentService = (*MockCommentService)(nil)

func NewMockCommentService() *MockCommentService {
	return &MockCommentService{}
}

func (m *MockCommentService) Submit(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResult, error) {
	m.Submitted = append(m.Submitted, req)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &models.SubmitResult{
		Comment: models.PublicComment{
			ID:        "test-comment-id",
			Alias:     "Anonymous",
			Body:      req.Body,
			Status:    models.StatusPending,
			CreatedAt: time.Now(),
			Children:  []models.PublicComment{},
		},
		EditKey: "test-edit-key",
	}, nil
}

func (m *MockCommentService) List(ctx context.Context, req *models.ListRequest) (*models.ListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, req)
	}
	return &models.ListResult{Comments: []models.PublicComment{}}, nil
}

func (m *MockCommentService) Report(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error) {
	m.Reported = append(m.Reported, req)
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, req)
	}
	key := req.ReporterKey
	if key == "" {
		key = "generated-reporter-key"
	}
	return &models.ReportResult{OK: true, ReportCount: 1, ReporterKey: key}, nil
}

func (m *MockCommentService) SelfDelete(ctx context.Context, req *models.SelfDeleteRequest) error {
	m.Deleted = append(m.Deleted, req)
	if m.SelfDeleteFunc != nil {
		return m.SelfDeleteFunc(ctx, req)
	}
	return nil
}

// MockModerationService is a mock implementation of ModerationService.
// Comments holds the records returned by the single-comment operations.
type MockModerationService struct {
	Comments map[string]*models.ModeratorComment
	Bans     []*models.Ban

	QueueFunc     func(ctx context.Context, req *models.QueueRequest) (*models.QueueResult, error)
	PostFunc      func(ctx context.Context, req *models.ModeratorPostRequest) (*models.ModeratorComment, error)
	CreateBanFunc func(ctx context.Context, req *models.CreateBanRequest) (*models.BanResult, error)

	BanRequests []*models.BanFromCommentRequest
}

// Verify interface compliance
var _ service.ModerationService = (*MockModerationService)(nil)

func NewMockModerationService() *MockModerationService {
	return &MockModerationService{Comments: make(map[string]*models.ModeratorComment)}
}

func (m *MockModerationService) setStatus(id string, status models.Status) (*models.ModeratorComment, error) {
	c, ok := m.Comments[id]
	if !ok {
		return nil, apperror.NotFound("comment")
	}
	c.Status = status
	return c, nil
}

func (m *MockModerationService) Publish(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	return m.setStatus(commentID, models.StatusPublished)
}

func (m *MockModerationService) Hide(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	return m.setStatus(commentID, models.StatusHidden)
}

func (m *MockModerationService) Shadow(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	return m.setStatus(commentID, models.StatusShadow)
}

func (m *MockModerationService) View(ctx context.Context, commentID string) (*models.ModeratorComment, error) {
	c, ok := m.Comments[commentID]
	if !ok {
		return nil, apperror.NotFound("comment")
	}
	return c, nil
}

func (m *MockModerationService) Queue(ctx context.Context, req *models.QueueRequest) (*models.QueueResult, error) {
	if m.QueueFunc != nil {
		return m.QueueFunc(ctx, req)
	}
	status := models.StatusPending
	if req.Status != "" {
		status = models.Status(req.Status)
	}
	result := &models.QueueResult{Comments: []models.ModeratorComment{}}
	for _, c := range m.Comments {
		if c.Status == status {
			result.Comments = append(result.Comments, *c)
		}
	}
	return result, nil
}

func (m *MockModerationService) Post(ctx context.Context, req *models.ModeratorPostRequest) (*models.ModeratorComment, error) {
	if m.PostFunc != nil {
		return m.PostFunc(ctx, req)
	}
	c := &models.ModeratorComment{Comment: models.Comment{
		ID:          "moderator-comment-id",
		Body:        req.Body,
		Alias:       service.ModeratorAlias,
		IsModerator: true,
		Status:      models.StatusPublished,
		CreatedAt:   time.Now(),
	}}
	m.Comments[c.ID] = c
	return c, nil
}

func (m *MockModerationService) BanFromComment(ctx context.Context, req *models.BanFromCommentRequest) (*models.BanResult, error) {
	m.BanRequests = append(m.BanRequests, req)
	c, ok := m.Comments[req.CommentID]
	if !ok {
		return nil, apperror.NotFound("comment")
	}
	b := &models.Ban{ID: "test-ban-id", IPHash: c.IPHash, NetHash: c.NetHash, Reason: req.Reason, ExpiresAt: req.ExpiresAt}
	m.Bans = append(m.Bans, b)
	return &models.BanResult{Ban: b}, nil
}

func (m *MockModerationService) CreateBan(ctx context.Context, req *models.CreateBanRequest) (*models.BanResult, error) {
	if m.CreateBanFunc != nil {
		return m.CreateBanFunc(ctx, req)
	}
	b := &models.Ban{ID: "test-ban-id", IPHash: req.IPHash, NetHash: req.NetHash, Reason: req.Reason, ExpiresAt: req.ExpiresAt}
	m.Bans = append(m.Bans, b)
	return &models.BanResult{Ban: b}, nil
}

func (m *MockModerationService) DeleteBan(ctx context.Context, banID string) error {
	for i, b := range m.Bans {
		if b.ID == banID {
			m.Bans = append(m.Bans[:i], m.Bans[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("ban")
}

func (m *MockModerationService) ListBans(ctx context.Context, limit int) ([]*models.Ban, error) {
	if limit > 0 && len(m.Bans) > limit {
		return m.Bans[:limit], nil
	}
	return m.Bans, nil
}
