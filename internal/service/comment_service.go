package service

import (
	"context"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/metrics"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/validation"
	"github.com/google/uuid"
)

const (
	// DefaultPageSize is the number of top-level comments per page
	DefaultPageSize = 20
	// MaxReplyDepth is how many reply levels below a top-level comment are shown
	MaxReplyDepth = 5
)

// List returns a page of published top-level comments with their published
// replies. Replies are loaded one level per query.
func (s *commentService) List(ctx context.Context, req *models.ListRequest) (*models.ListResult, error) {
	if err := validation.ToError(s.validator.ValidateList(req)); err != nil {
		return nil, err
	}
	before, _ := validation.ParseCursor(req.Cursor)
	limit := validation.ClampLimit(req.Limit, DefaultPageSize)

	article, err := s.loadArticle(ctx, req.ArticleSlug)
	if err != nil {
		return nil, err
	}

	roots, err := s.repos.Comment.ListRoots(ctx, article.ID, models.StatusPublished, before, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	all := append([]*models.Comment(nil), roots...)
	children := make(map[string][]*models.Comment)
	frontier := roots
	for depth := 1; depth <= MaxReplyDepth && len(frontier) > 0; depth++ {
		ids := make([]string, len(frontier))
		for i, c := range frontier {
			ids[i] = c.ID
		}
		replies, err := s.repos.Comment.ListChildren(ctx, ids, models.StatusPublished)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		for _, r := range replies {
			children[*r.ParentID] = append(children[*r.ParentID], r)
		}
		all = append(all, replies...)
		frontier = replies
	}

	counts, err := s.countReports(ctx, all)
	if err != nil {
		return nil, err
	}

	var build func(c *models.Comment) models.PublicComment
	build = func(c *models.Comment) models.PublicComment {
		view := toPublic(c, counts[c.ID])
		for _, child := range children[c.ID] {
			view.Children = append(view.Children, build(child))
		}
		return view
	}

	result := &models.ListResult{Comments: make([]models.PublicComment, 0, len(roots))}
	for _, root := range roots {
		result.Comments = append(result.Comments, build(root))
	}
	if len(roots) == limit {
		next := validation.FormatCursor(roots[len(roots)-1].CreatedAt)
		result.NextCursor = &next
	}
	return result, nil
}

// Report records an abuse report. A repeat report from the same reporter is
// accepted but not counted again. Reaching the threshold hides a published
// comment.
func (s *commentService) Report(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error) {
	if err := validation.ToError(s.validator.ValidateReport(req)); err != nil {
		return nil, err
	}
	reporterKey := req.ReporterKey
	if reporterKey == "" {
		reporterKey = uuid.New().String()
	}

	comment, err := s.loadComment(ctx, req.CommentID)
	if err != nil {
		return nil, err
	}

	created, err := s.repos.Report.Create(ctx, &models.Report{
		CommentID:   comment.ID,
		Reason:      req.Reason,
		ReporterKey: reporterKey,
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	count, err := s.repos.Report.CountByComment(ctx, comment.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if created {
		metrics.ReportsTotal.Inc()
		s.log.Info().
			Str("comment_id", comment.ID).
			Int("report_count", count).
			Msg("Comment reported")

		if count >= s.cfg.Moderation.ReportThreshold && comment.Status == models.StatusPublished {
			if err := s.transition(ctx, comment, models.StatusHidden, CauseReports); err != nil {
				return nil, err
			}
		}
	}

	return &models.ReportResult{OK: true, ReportCount: count, ReporterKey: reporterKey}, nil
}

// SelfDelete hides a comment for a visitor holding its edit key
func (s *commentService) SelfDelete(ctx context.Context, req *models.SelfDeleteRequest) error {
	if err := validation.ToError(s.validator.ValidateSelfDelete(req)); err != nil {
		return err
	}
	comment, err := s.loadComment(ctx, req.CommentID)
	if err != nil {
		return err
	}
	if !s.hasher.MatchEditKey(req.EditKey, comment.EditKeyHash) {
		s.log.Info().Str("comment_id", comment.ID).Msg("Self-delete with invalid edit key")
		return apperror.Forbidden("invalid edit key")
	}
	return s.transition(ctx, comment, models.StatusHidden, CauseSelfDelete)
}
