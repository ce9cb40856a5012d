package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/config"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/models"
)

func manualMode(cfg *config.Config) {
	cfg.Moderation.PublishMode = config.PublishManual
}

// --- End-to-end flows ---

func TestEndToEnd_ManualReviewWithTemplate(t *testing.T) {
	h := newTestHarness(t, manualMode)
	h.articleRepo.Add("hello-world", "名無しの{hash}さん")
	ctx := context.Background()

	res, err := h.services.Comment.Submit(ctx, &models.SubmitRequest{
		ArticleSlug: "hello-world",
		Body:        "こんにちは、テストです",
		Address:     "203.0.113.5",
		UserAgent:   "Mozilla/5.0 (test)",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res.Comment.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", res.Comment.Status)
	}
	if !regexp.MustCompile(`^名無しの[0-9a-z]{4}さん$`).MatchString(res.Comment.Alias) {
		t.Errorf("alias %q does not follow the template", res.Comment.Alias)
	}
	if res.EditKey == "" {
		t.Fatal("expected an edit key")
	}

	stored := h.commentRepo.Comments[res.Comment.ID]
	if stored.EditKeyHash == "" || stored.EditKeyHash == res.EditKey {
		t.Error("only a hash of the edit key may be stored")
	}
	if stored.IPHash == "" || stored.IPHash == "203.0.113.5" {
		t.Error("address must be stored hashed")
	}
	if stored.Meta.ClientSealed == "" {
		t.Error("expected a sealed client snapshot")
	}

	// the same visitor gets the same pseudonym on the same day
	h.clock.Advance(time.Minute)
	again, err := h.services.Comment.Submit(ctx, &models.SubmitRequest{
		ArticleSlug: "hello-world",
		Body:        "二件目のコメント",
		Address:     "203.0.113.5",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if again.Comment.Alias != res.Comment.Alias {
		t.Errorf("alias changed within a day: %q then %q", res.Comment.Alias, again.Comment.Alias)
	}

	list, err := h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "hello-world"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Comments) != 0 {
		t.Errorf("pending comments must not be listed, got %d", len(list.Comments))
	}

	view, err := h.services.Moderation.Publish(ctx, res.Comment.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if view.Status != models.StatusPublished {
		t.Errorf("status after publish = %s", view.Status)
	}

	list, err = h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "hello-world"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Comments) != 1 || list.Comments[0].Body != "こんにちは、テストです" {
		t.Errorf("listed = %+v", list.Comments)
	}
}

// --- Moderation ---

func TestModeration_QueueViewAndTransitions(t *testing.T) {
	h := newTestHarness(t, manualMode)
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	first := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "first one", Address: "192.0.2.44", UserAgent: "agent/1"})
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "see https://evil.example/x", Address: "192.0.2.45"})

	queue, err := h.services.Moderation.Queue(ctx, &models.QueueRequest{})
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(queue.Comments) != 2 {
		t.Fatalf("queue has %d comments, want 2", len(queue.Comments))
	}
	flagged := queue.Comments[0]
	if len(flagged.Notes) != 1 || flagged.Notes[0] != "links to untrusted hosts: evil.example" {
		t.Errorf("notes = %v", flagged.Notes)
	}
	if flagged.Meta.ClientSealed != "" {
		t.Error("sealed snapshot must not be returned")
	}

	view, err := h.services.Moderation.View(ctx, first.Comment.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Client == nil || view.Client.Address != "192.0.2.44" || view.Client.UserAgent != "agent/1" {
		t.Fatalf("client snapshot = %+v", view.Client)
	}
	if view.Client.MaskedAddress == "192.0.2.44" {
		t.Error("masked address should not equal the raw address")
	}

	if _, err := h.services.Moderation.Shadow(ctx, first.Comment.ID); err != nil {
		t.Fatalf("Shadow: %v", err)
	}
	stored := h.commentRepo.Comments[first.Comment.ID]
	if stored.Status != models.StatusShadow || !stored.Meta.Moderation.ModeratorFlagged {
		t.Errorf("after shadow: status %s flagged %v", stored.Status, stored.Meta.Moderation.ModeratorFlagged)
	}

	if _, err := h.services.Moderation.Publish(ctx, first.Comment.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	stored = h.commentRepo.Comments[first.Comment.ID]
	if stored.Meta.Moderation.ModeratorFlagged || stored.Meta.Moderation.RequiresReview {
		t.Error("publishing should clear the moderation flags")
	}

	if _, err := h.services.Moderation.Hide(ctx, first.Comment.ID); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if h.commentRepo.Comments[first.Comment.ID].Status != models.StatusHidden {
		t.Error("expected hidden")
	}
	if n := h.publisher.Count(events.SubjectCommentStatus); n != 3 {
		t.Errorf("status events = %d, want 3", n)
	}

	hidden, err := h.services.Moderation.Queue(ctx, &models.QueueRequest{Status: "hidden"})
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(hidden.Comments) != 1 {
		t.Errorf("hidden queue has %d comments", len(hidden.Comments))
	}

	_, err = h.services.Moderation.Publish(ctx, "550e8400-e29b-41d4-a716-446655440000")
	wantKind(t, err, apperror.KindNotFound)
}

func TestModeration_PostIsStrict(t *testing.T) {
	h := newTestHarness(t, manualMode)
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	_, err := h.services.Moderation.Post(ctx, &models.ModeratorPostRequest{ArticleSlug: "post", Body: "read https://evil.example"})
	wantKind(t, err, apperror.KindValidation)

	view, err := h.services.Moderation.Post(ctx, &models.ModeratorPostRequest{ArticleSlug: "post", Body: "Thread locked, please be kind", Address: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if view.Status != models.StatusPublished || !view.IsModerator || view.Alias != "Moderator" {
		t.Errorf("moderator post = %+v", view.Comment)
	}

	list, err := h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "post"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Comments) != 1 || !list.Comments[0].Meta.Moderator {
		t.Errorf("listed = %+v", list.Comments)
	}
}

func TestModeration_BanFromCommentWithPurge(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	troll := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "first troll post", Address: "198.18.0.5"})
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "second troll message", Address: "198.18.0.5"})
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "innocent bystander", Address: "198.18.1.5"})
	reply := h.submit(t, models.SubmitRequest{ArticleSlug: "post", ParentID: troll.Comment.ID, Body: "please stop", Address: "198.18.2.5"})

	res, err := h.services.Moderation.BanFromComment(ctx, &models.BanFromCommentRequest{
		CommentID: troll.Comment.ID,
		Scope:     models.BanScopeIP,
		Reason:    "trolling",
		Purge:     true,
	})
	if err != nil {
		t.Fatalf("BanFromComment: %v", err)
	}
	if res.RemovedCount != 2 {
		t.Errorf("removed = %d, want 2", res.RemovedCount)
	}
	if res.Ban.IPHash == "" || res.Ban.NetHash != "" {
		t.Errorf("ip-scoped ban = %+v", res.Ban)
	}
	if len(h.commentRepo.Comments) != 2 {
		t.Errorf("expected 2 surviving comments, have %d", len(h.commentRepo.Comments))
	}

	orphan, err := h.services.Moderation.View(ctx, reply.Comment.ID)
	if err != nil {
		t.Fatalf("reply from another visitor should survive the purge: %v", err)
	}
	if !orphan.Orphaned || orphan.ParentID != nil {
		t.Errorf("surviving reply should be orphaned: %+v", orphan.Comment)
	}
	list, err := h.services.Comment.List(ctx, &models.ListRequest{ArticleSlug: "post"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Comments) != 1 || list.Comments[0].Body != "innocent bystander" {
		t.Errorf("orphaned reply must not be listed: %+v", list.Comments)
	}
	_, err = h.services.Comment.Submit(ctx, &models.SubmitRequest{ArticleSlug: "post", ParentID: reply.Comment.ID, Body: "replying to an orphan", Address: "198.18.3.5"})
	wantKind(t, err, apperror.KindNotFound)

	_, err = h.services.Comment.Submit(ctx, &models.SubmitRequest{ArticleSlug: "post", Body: "I'm back", Address: "198.18.0.5"})
	wantKind(t, err, apperror.KindForbidden)

	bans, err := h.services.Moderation.ListBans(ctx, 0)
	if err != nil || len(bans) != 1 {
		t.Fatalf("ListBans = %d, %v", len(bans), err)
	}
	if err := h.services.Moderation.DeleteBan(ctx, bans[0].ID); err != nil {
		t.Fatalf("DeleteBan: %v", err)
	}
	h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "I'm back", Address: "198.18.0.5"})

	wantKind(t, h.services.Moderation.DeleteBan(ctx, bans[0].ID), apperror.KindNotFound)
	if h.publisher.Count(events.SubjectBanCreated) != 1 || h.publisher.Count(events.SubjectBanDeleted) != 1 {
		t.Errorf("events = %v", h.publisher.Subjects())
	}
}

func TestModeration_BanDefaultsToBothScopes(t *testing.T) {
	h := newTestHarness(t, nil)
	h.articleRepo.Add("post", "")
	ctx := context.Background()

	c := h.submit(t, models.SubmitRequest{ArticleSlug: "post", Body: "hello", Address: "198.18.7.5"})
	res, err := h.services.Moderation.BanFromComment(ctx, &models.BanFromCommentRequest{CommentID: c.Comment.ID})
	if err != nil {
		t.Fatalf("BanFromComment: %v", err)
	}
	if res.Ban.IPHash == "" || res.Ban.NetHash == "" {
		t.Errorf("default scope should cover both hashes: %+v", res.Ban)
	}
	if res.RemovedCount != 0 || len(h.commentRepo.Comments) != 1 {
		t.Error("comments are only removed on request")
	}

	// same network, different address
	_, err = h.services.Comment.Submit(ctx, &models.SubmitRequest{ArticleSlug: "post", Body: "sock puppet", Address: "198.18.7.99"})
	wantKind(t, err, apperror.KindForbidden)

	// banning again updates instead of duplicating
	later := h.clock.Now().Add(24 * time.Hour)
	again, err := h.services.Moderation.BanFromComment(ctx, &models.BanFromCommentRequest{CommentID: c.Comment.ID, ExpiresAt: &later})
	if err != nil {
		t.Fatalf("BanFromComment: %v", err)
	}
	if again.Ban.ID != res.Ban.ID || len(h.banRepo.Bans) != 1 {
		t.Error("expected the existing ban to be updated")
	}
}

func TestModeration_CreateBanValidation(t *testing.T) {
	h := newTestHarness(t, nil)
	_, err := h.services.Moderation.CreateBan(context.Background(), &models.CreateBanRequest{Reason: "nothing to ban"})
	wantKind(t, err, apperror.KindValidation)
}
