package service

import (
	"context"
	"fmt"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/ban"
	"github.com/anon-comments-api/internal/captcha"
	"github.com/anon-comments-api/internal/config"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/identity"
	"github.com/anon-comments-api/internal/models"
	"github.com/anon-comments-api/internal/moderation"
	"github.com/anon-comments-api/internal/ratelimit"
	"github.com/anon-comments-api/internal/repository"
	"github.com/anon-comments-api/internal/validation"
	"github.com/rs/zerolog"
)

// CommentService defines the visitor-facing comment operations
type CommentService interface {
	Submit(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResult, error)
	List(ctx context.Context, req *models.ListRequest) (*models.ListResult, error)
	Report(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error)
	SelfDelete(ctx context.Context, req *models.SelfDeleteRequest) error
}

// ModerationService defines the moderator-only operations
type ModerationService interface {
	Publish(ctx context.Context, commentID string) (*models.ModeratorComment, error)
	Hide(ctx context.Context, commentID string) (*models.ModeratorComment, error)
	Shadow(ctx context.Context, commentID string) (*models.ModeratorComment, error)
	View(ctx context.Context, commentID string) (*models.ModeratorComment, error)
	Queue(ctx context.Context, req *models.QueueRequest) (*models.QueueResult, error)
	Post(ctx context.Context, req *models.ModeratorPostRequest) (*models.ModeratorComment, error)
	BanFromComment(ctx context.Context, req *models.BanFromCommentRequest) (*models.BanResult, error)
	CreateBan(ctx context.Context, req *models.CreateBanRequest) (*models.BanResult, error)
	DeleteBan(ctx context.Context, banID string) error
	ListBans(ctx context.Context, limit int) ([]*models.Ban, error)
}

// Dependencies are the external collaborators of the services. Nil fields
// select a disabled CAPTCHA, a no-op event publisher and the wall clock.
type Dependencies struct {
	Captcha captcha.Verifier
	Events  events.Publisher
	Now     func() time.Time
}

// Services holds all service interfaces
type Services struct {
	Comment    CommentService
	Moderation ModerationService
	// Bans is shared with the background sweeper
	Bans *ban.Enforcer
}

// core is the state shared by both services. Everything in it is
// read-only after construction.
type core struct {
	repos     *repository.Repositories
	cfg       *config.Config
	hasher    *identity.Hasher
	sealer    *identity.Sealer
	aliases   *identity.AliasResolver
	moderator *moderation.Moderator
	limiter   *ratelimit.Limiter
	detector  *ratelimit.Detector
	bans      *ban.Enforcer
	validator *validation.Validator
	captcha   captcha.Verifier
	events    events.Publisher
	now       func() time.Time
	log       zerolog.Logger
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	if deps.Captcha == nil {
		deps.Captcha = captcha.Disabled{}
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	sealer, err := identity.NewSealer(cfg.Security.Pepper)
	if err != nil {
		return nil, fmt.Errorf("create client sealer: %w", err)
	}

	mod := moderation.New(moderation.Config{
		BannedTerms:  cfg.Moderation.BannedTerms,
		AllowedHosts: cfg.Moderation.AllowedLinkHosts,
		MaxLinks:     cfg.Moderation.MaxLinks,
	})

	rl := cfg.RateLimit
	c := &core{
		repos:     repos,
		cfg:       cfg,
		hasher:    identity.NewHasher(cfg.Security.Pepper),
		sealer:    sealer,
		aliases:   identity.NewAliasResolver(cfg.Security.AliasSalt, mod, cfg.Moderation.Location(), cfg.Moderation.DefaultAlias, deps.Now),
		moderator: mod,
		limiter: ratelimit.NewLimiter(repos.Comment, ratelimit.DefaultWindows(rl.PerMinute, rl.PerHour, rl.PerDay), log).
			WithClock(deps.Now),
		detector:  ratelimit.NewDetector(repos.Comment, rl.SimilarityHistory, rl.SimilarityThreshold, log),
		bans:      ban.NewEnforcer(repos.Ban, repos.Comment, log).WithClock(deps.Now),
		validator: validation.NewValidator().WithClock(deps.Now),
		captcha:   deps.Captcha,
		events:    deps.Events,
		now:       deps.Now,
		log:       log,
	}

	log.Info().
		Bool("auto_publish", cfg.Moderation.AutoPublish()).
		Str("publish_mode", string(cfg.Moderation.PublishMode)).
		Int("report_threshold", cfg.Moderation.ReportThreshold).
		Msg("Comment services initialized")

	return &Services{
		Comment:    newCommentService(c),
		Moderation: newModerationService(c),
		Bans:       c.bans,
	}, nil
}

// publish sends an event without failing the caller
func (c *core) publish(subject string, payload interface{}) {
	if err := c.events.Publish(subject, payload); err != nil {
		c.log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

// loadComment returns a comment or NotFound
func (c *core) loadComment(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := c.repos.Comment.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if comment == nil {
		return nil, apperror.NotFound("comment")
	}
	return comment, nil
}

// loadArticle resolves a published article or NotFound
func (c *core) loadArticle(ctx context.Context, slug string) (*models.Article, error) {
	article, err := c.repos.Article.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if article == nil {
		return nil, apperror.NotFound("article")
	}
	return article, nil
}

// checkParent requires parentID to name a listed comment on the same article
func (c *core) checkParent(ctx context.Context, parentID string, article *models.Article) (*string, error) {
	if parentID == "" {
		return nil, nil
	}
	parent, err := c.repos.Comment.GetByID(ctx, parentID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if parent == nil || parent.Orphaned {
		return nil, apperror.NotFound("parent comment")
	}
	if parent.ArticleID != article.ID {
		return nil, apperror.Validation("parent comment belongs to a different article")
	}
	return &parent.ID, nil
}

// sealClient encrypts the client snapshot for the moderation record
func (c *core) sealClient(address, userAgent string) (string, error) {
	snapshot := models.ClientSnapshot{
		Address:       address,
		MaskedAddress: identity.MaskAddress(address),
		UserAgent:     userAgent,
		SubmittedAt:   c.now().UTC(),
	}
	sealed, err := c.sealer.Seal(snapshot)
	if err != nil {
		return "", apperror.Internal(err)
	}
	return sealed, nil
}

// countReports returns report counts for a batch of comments
func (c *core) countReports(ctx context.Context, comments []*models.Comment) (map[string]int, error) {
	ids := make([]string, len(comments))
	for i, comment := range comments {
		ids[i] = comment.ID
	}
	counts, err := c.repos.Report.CountByComments(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return counts, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
