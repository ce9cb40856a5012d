package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/config"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/mocks"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/service"
	"github.com/rs/zerolog"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testHarness struct {
	services    *service.Services
	cfg         *config.Config
	clock       *testClock
	articleRepo *mocks.MockArticleRepository
	commentRepo *mocks.MockCommentRepository
	banRepo     *mocks.MockBanRepository
	reportRepo  *mocks.MockReportRepository
	publisher   *mocks.RecordingPublisher
	captcha     *mocks.MockCaptcha
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			Pepper:    "pepper-0123456789abcdef",
			AliasSalt: "salt-0123456789abcdef",
		},
		RateLimit: config.RateLimitConfig{
			PerMinute:           100,
			PerHour:             1000,
			PerDay:              10000,
			SimilarityHistory:   5,
			SimilarityThreshold: 0.9,
		},
		Moderation: config.ModerationConfig{
			PublishMode:      config.PublishAlways,
			BannedTerms:      []string{"spamword"},
			AllowedLinkHosts: []string{"example.com"},
			MaxLinks:         3,
			ReportThreshold:  3,
			AliasTimezone:    "UTC",
		},
	}
}

// newTestHarness wires the services over in-memory repositories. configure
// may adjust the config before the services are built.
func newTestHarness(t testing.TB, configure func(*config.Config)) *testHarness {
	t.Helper()

	cfg := testConfig()
	if configure != nil {
		configure(cfg)
	}

	repos, articles, comments, bans, reports := mocks.NewRepositories()
	clock := &testClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	comments.Now = clock.Now

	h := &testHarness{
		cfg:         cfg,
		clock:       clock,
		articleRepo: articles,
		commentRepo: comments,
		banRepo:     bans,
		reportRepo:  reports,
		publisher:   mocks.NewRecordingPublisher(),
		captcha:     &mocks.MockCaptcha{Disabled: true},
	}

	services, err := service.NewServices(repos, service.Dependencies{
		Captcha: h.captcha,
		Events:  h.publisher,
		Now:     clock.Now,
	}, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	h.services = services
	return h
}

// submit posts a comment and advances the clock so created_at values differ
func (h *testHarness) submit(t *testing.T, req models.SubmitRequest) *models.SubmitResult {
	t.Helper()
	if req.Address == "" {
		req.Address = "198.51.100.7"
	}
	res, err := h.services.Comment.Submit(context.Background(), &req)
	if err != nil {
		t.Fatalf("Submit(%q): %v", req.Body, err)
	}
	h.clock.Advance(time.Second)
	return res
}

func wantKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if !apperror.Is(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		autoPublish, strict bool
		want                models.Status
	}{
		{true, true, models.StatusPublished},
		{true, false, models.StatusPending},
		{false, true, models.StatusPending},
		{false, false, models.StatusPending},
	}
	for _, tt := range tests {
		if got := service.InitialStatus(tt.autoPublish, tt.strict); got != tt.want {
			t.Errorf("InitialStatus(%v, %v) = %s, want %s", tt.autoPublish, tt.strict, got, tt.want)
		}
	}
}

func TestSubmit_AutoPublishAndReview(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")

	clean := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "Great write-up, thanks"})
	if clean.Comment.Status != models.StatusPublished {
		t.Errorf("clean comment status = %s, want published", clean.Comment.Status)
	}
	if clean.Comment.Alias != "Anonymous" || clean.Comment.Meta.AliasProvided {
		t.Errorf("unexpected alias %+v", clean.Comment)
	}

	flagged := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "buy spamword today", Address: "198.51.100.8"})
	if flagged.Comment.Status != models.StatusPending {
		t.Errorf("flagged comment status = %s, want pending", flagged.Comment.Status)
	}
	if !flagged.Comment.Meta.RequiresReview {
		t.Error("flagged comment should require review")
	}

	stored := h.commentRepo.Comments[flagged.Comment.ID]
	if len(stored.Meta.Moderation.Reasons) != 1 || stored.Meta.Moderation.Reasons[0].Kind != models.ReasonWord {
		t.Errorf("reasons = %+v", stored.Meta.Moderation.Reasons)
	}
	if h.publisher.Count(events.SubjectCommentCreated) != 2 || h.publisher.Count(events.SubjectCommentReview) != 1 {
		t.Errorf("events = %v", h.publisher.Subjects())
	}
}

func TestSubmit_ChosenAlias(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")

	res := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hello", Alias: "  taro  "})
	if res.Comment.Alias != "taro" || !res.Comment.Meta.AliasProvided {
		t.Errorf("alias = %q provided=%v", res.Comment.Alias, res.Comment.Meta.AliasProvided)
	}

	_, err := h.services.Comment.Submit(context.Background(), &models.SubmitRequest{
		ArticleSlug: "post", Body: "hello again", Alias: "spamword fan", Address: "198.51.100.9",
	})
	wantKind(t, err, apperror.KindValidation)
}

func TestSubmit_Honeypot(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")

	_, err := h.services.Comment.Submit(context.Background(), &models.SubmitRequest{
		ArticleSlug: "post", Body: "hi", Honeypot: "http://bot.example", Address: "1.1.1.1",
	})
	wantKind(t, err, apperror.KindForbidden)
	if len(h.commentRepo.Comments) != 0 {
		t.Error("honeypot submission must not be stored")
	}
}

func TestSubmit_Lookups(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	h.articleRepo.Add("other", "")
	elsewhere := h.submit(t, models.SubmitRequest{ArticleSlug: "other", Body: "on another article"})

	tests := []struct {
		name string
		req  models.SubmitRequest
		want apperror.Kind
	}{
		{"unknown article", models.SubmitRequest{ArticleSlug: "missing", Body: "x"}, apperror.KindNotFound},
		{"unknown parent", models.SubmitRequest{ArticleSlug: "post", ParentID: "550e8400-e29b-41d4-a716-446655440000", Body: "x"}, apperror.KindNotFound},
		{"parent on other article", models.SubmitRequest{ArticleSlug: "post", ParentID: elsewhere.Comment.ID, Body: "x"}, apperror.KindValidation},
		{"blank body", models.SubmitRequest{ArticleSlug: "post", Body: "   "}, apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Address = "192.0.2.1"
			_, err := h.services.Comment.Submit(context.Background(), &tt.req)
			wantKind(t, err, tt.want)
		})
	}
}

func TestSubmit_Captcha(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	h.captcha.Disabled = false
	h.captcha.ValidToken = "good-token"

	_, err := h.services.Comment.Submit(context.Background(), &models.SubmitRequest{ArticleSlug: "post", Body: "hi", Address: "1.1.1.1"})
	wantKind(t, err, apperror.KindCaptcha)

	_, err = h.services.Comment.Submit(context.Background(), &models.SubmitRequest{ArticleSlug: "post", Body: "hi", CaptchaToken: "forged", Address: "1.1.1.1"})
	wantKind(t, err, apperror.KindCaptcha)

	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hi", CaptchaToken: "good-token", Address: "1.1.1.1"})
}

func TestSubmit_RateLimitPerMinute(t *testing.T) {
	h := newTestHarness(t, func(cfg *config.Config) { cfg.RateLimit.PerMinute = 1 })
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "first thought", Address: "203.0.113.9"})

	_, err := h.services.Comment.Submit(ctx, &models.SubmitRequest{ArticleSlug: "post", Body: "a different idea", Address: "203.0.113.9"})
	wantKind(t, err, apperror.KindRateLimit)

	// another address is unaffected
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "unrelated visitor", Address: "203.0.113.10"})

	h.clock.Advance(time.Minute)
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "a different idea", Address: "203.0.113.9"})
}

func TestSubmit_Similarity(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")

	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "This is my first comment here"})

	_, err := h.services.Comment.Submit(context.Background(), &models.SubmitRequest{
		ArticleSlug: "post", Body: "This is my first comment here!", Address: "198.51.100.7",
	})
	wantKind(t, err, apperror.KindSimilarity)

	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "Completely unrelated follow-up"})
}

func TestSubmit_BannedAddressAndExpiry(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	expires := h.clock.Now().Add(time.Hour)
	if _, err := h.services.Moderation.CreateBan(ctx, &models.CreateBanRequest{IP: "9.9.9.9", Reason: "spam", ExpiresAt: &expires}); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}

	_, err := h.services.Comment.Submit(ctx, &models.SubmitRequest{ArticleSlug: "post", Body: "let me in", Address: "9.9.9.9"})
	wantKind(t, err, apperror.KindForbidden)

	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "neighbour here", Address: "9.9.9.10"})

	h.clock.Advance(2 * time.Hour)
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "let me in", Address: "9.9.9.9"})
}

func TestSubmit_NetworkBan(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	if _, err := h.services.Moderation.CreateBan(ctx, &models.CreateBanRequest{Net: "203.0.113.0/24"}); err != nil {
		t.Fatalf("CreateBan: %v", err)
	}
	_, err := h.services.Comment.Submit(ctx, &models.SubmitRequest{ArticleSlug: "post", Body: "hello", Address: "203.0.113.77"})
	wantKind(t, err, apperror.KindForbidden)

	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hello", Address: "203.0.114.77"})
}

func TestSubmit_StoreFailure(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	h.commentRepo.CreateError = fmt.Errorf("connection reset")

	_, err := h.services.Comment.Submit(context.Background(), &models.SubmitRequest{ArticleSlug: "post", Body: "hi", Address: "1.1.1.1"})
	wantKind(t, err, apperror.KindInternal)
	if apperror.PublicMessage(err) != "internal error" {
		t.Errorf("store detail leaked: %q", apperror.PublicMessage(err))
	}
}

func TestReport_Threshold(t *testing.T) {
	tests := []struct {
		threshold int
		reports   int
		want      models.Status
	}{
		{threshold: 3, reports: 2, want: models.StatusPublished},
		{threshold: 3, reports: 3, want: models.StatusHidden},
		{threshold: 2, reports: 2, want: models.StatusHidden},
		{threshold: 2, reports: 1, want: models.StatusPublished},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("threshold %d after %d", tt.threshold, tt.reports), func(t *testing.T) {
			h := newTestHarness(t, func(cfg *config.Config) { cfg.Moderation.ReportThreshold = tt.threshold })
			h.articleRepo.Add("post", "")
			res := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "controversial take"})

			var last *models.ReportResult
			for i := 0; i < tt.reports; i++ {
				r, err := h.services.Comment.Report(context.Background(), &models.ReportRequest{
					CommentID:   res.Comment.ID,
					ReporterKey: fmt.Sprintf("reporter-%d", i),
				})
				if err != nil {
					t.Fatalf("Report: %v", err)
				}
				last = r
			}

			if last.ReportCount != tt.reports {
				t.Errorf("report count = %d, want %d", last.ReportCount, tt.reports)
			}
			if got := h.commentRepo.Comments[res.Comment.ID].Status; got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReport_RepeatReporterCountsOnce(t *testing.T) {
	h := newTestHarness(t, func(cfg *config.Config) { cfg.Moderation.ReportThreshold = 2 })
	h.articleRepo.Add("post", "")
	res := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hello"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r, err := h.services.Comment.Report(ctx, &models.ReportRequest{CommentID: res.Comment.ID, ReporterKey: "same-visitor"})
		if err != nil {
			t.Fatalf("Report: %v", err)
		}
		if !r.OK || r.ReportCount != 1 {
			t.Errorf("repeat report = %+v, want ok with count 1", r)
		}
	}
	if h.commentRepo.Comments[res.Comment.ID].Status != models.StatusPublished {
		t.Error("one reporter must not hide a comment")
	}
}

func TestReport_AssignsReporterKeyAndNotFound(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	res := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hello"})
	ctx := context.Background()

	r, err := h.services.Comment.Report(ctx, &models.ReportRequest{CommentID: res.Comment.ID})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r.ReporterKey == "" {
		t.Error("expected a generated reporter key")
	}

	_, err = h.services.Comment.Report(ctx, &models.ReportRequest{CommentID: "550e8400-e29b-41d4-a716-446655440000"})
	wantKind(t, err, apperror.KindNotFound)
}

func TestReport_PendingCommentStaysPending(t *testing.T) {
	h := newTestHarness(t, func(cfg *config.Config) {
		cfg.Moderation.PublishMode = config.PublishManual
		cfg.Moderation.ReportThreshold = 1
	})
	h.articleRepo.Add("post", "")
	res := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hello"})

	if _, err := h.services.Comment.Report(context.Background(), &models.ReportRequest{CommentID: res.Comment.ID, ReporterKey: "k"}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if got := h.commentRepo.Comments[res.Comment.ID].Status; got != models.StatusPending {
		t.Errorf("status = %s, want pending", got)
	}
}

func TestSelfDelete(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	res := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "regrettable"})
	ctx := context.Background()

	err := h.services.Comment.SelfDelete(ctx, &models.SelfDeleteRequest{CommentID: res.Comment.ID, EditKey: "not-the-key"})
	wantKind(t, err, apperror.KindForbidden)

	err = h.services.Comment.SelfDelete(ctx, &models.SelfDeleteRequest{CommentID: "550e8400-e29b-41d4-a716-446655440000", EditKey: res.EditKey})
	wantKind(t, err, apperror.KindNotFound)

	if err := h.services.Comment.SelfDelete(ctx, &models.SelfDeleteRequest{CommentID: res.Comment.ID, EditKey: res.EditKey}); err != nil {
		t.Fatalf("SelfDelete: %v", err)
	}
	if got := h.commentRepo.Comments[res.Comment.ID].Status; got != models.StatusHidden {
		t.Errorf("status = %s, want hidden", got)
	}
	if h.publisher.Count(events.SubjectCommentStatus) != 1 {
		t.Errorf("expected a status event, got %v", h.publisher.Subjects())
	}

	list, err := h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "post"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Comments) != 0 {
		t.Errorf("hidden comment still listed: %+v", list.Comments)
	}
}

func TestList_TreeDepthAndVisibility(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")

	root := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "root comment", Address: "10.0.0.1"})
	parent := root.Comment.ID
	for i := 1; i <= 7; i++ {
		reply := h.submit(t, models.SubmitRequest{
			ArticleSlug: "post",
			ParentID:    parent,
			Body:        fmt.Sprintf("reply number %d", i),
			Address:     fmt.Sprintf("10.0.%d.1", i),
		})
		parent = reply.Comment.ID
	}
	// flagged replies wait for review and stay out of the tree
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", ParentID: root.Comment.ID, Body: "spamword reply", Address: "10.1.0.1"})

	list, err := h.services.Comment.List(context.Background(), &models.ListRequest{ArticleSlug: "post"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Comments) != 1 {
		t.Fatalf("expected 1 root, got %d", len(list.Comments))
	}
	if n := len(list.Comments[0].Children); n != 1 {
		t.Errorf("root has %d children, want 1", n)
	}

	depth := 0
	node := list.Comments[0]
	for len(node.Children) > 0 {
		node = node.Children[0]
		depth++
	}
	if depth != service.MaxReplyDepth {
		t.Errorf("reply depth = %d, want %d", depth, service.MaxReplyDepth)
	}
	if node.Children == nil {
		t.Error("leaf children should be an empty list, not nil")
	}
}

func TestList_Pagination(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	for i := 0; i < 3; i++ {
		h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: fmt.Sprintf("top level %c", 'a'+i), Address: fmt.Sprintf("10.9.%d.1", i)})
	}
	ctx := context.Background()

	first, err := h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "post", Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(first.Comments) != 2 || first.NextCursor == nil {
		t.Fatalf("first page = %d comments, cursor %v", len(first.Comments), first.NextCursor)
	}
	if first.Comments[0].Body != "top level c" {
		t.Errorf("newest first expected, got %q", first.Comments[0].Body)
	}

	second, err := h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "post", Limit: 2, Cursor: *first.NextCursor})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(second.Comments) != 1 || second.Comments[0].Body != "top level a" {
		t.Errorf("second page = %+v", second.Comments)
	}
	if second.NextCursor != nil {
		t.Error("last page should have no cursor")
	}

	_, err = h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "missing"})
	wantKind(t, err, apperror.KindNotFound)
}
