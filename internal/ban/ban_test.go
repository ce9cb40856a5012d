package ban_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anon-comments-api/internal/apperror"
	"github.com/anon-comments-api/internal/ban"
	"github.com/anon-comments-api/internal/events"
	"github.com/anon-comments-api/internal/identity"
	"github.com/anon-comments-api/internal/lock"
	"github.com/anon-comments-api/internal/mocks"
	"github.com/anon-comments-api/internal/models"
	"github.com/rs/zerolog"
)

const pepper = "test-pepper-0123456789"

func hashesOf(addr string) ban.Hashes {
	return ban.Hashes{IP: identity.HashIdentity(addr, pepper), Net: identity.HashNetwork(addr, pepper)}
}

func TestEnforcer_BanLifecycle(t *testing.T) {
	ctx := context.Background()
	bans := mocks.NewMockBanRepository()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	e := ban.NewEnforcer(bans, mocks.NewMockCommentRepository(), zerolog.Nop()).
		WithClock(func() time.Time { return now })

	target := ban.Hashes{IP: identity.HashIdentity("9.9.9.9", pepper)}
	if _, _, err := e.CreateOrUpdate(ctx, target, "spam", nil); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}

	banned, err := e.IsBanned(ctx, hashesOf("9.9.9.9"))
	if err != nil || !banned {
		t.Fatalf("expected permanent ban to apply, banned=%v err=%v", banned, err)
	}
	if banned, _ := e.IsBanned(ctx, hashesOf("9.9.9.10")); banned {
		t.Error("ip-scoped ban must not cover a neighbour address")
	}

	future := now.Add(time.Hour)
	if _, created, _ := e.CreateOrUpdate(ctx, target, "spam", &future); created {
		t.Error("expected existing ban to be updated, not duplicated")
	}
	if len(bans.Bans) != 1 {
		t.Fatalf("expected 1 ban row, got %d", len(bans.Bans))
	}
	if banned, _ := e.IsBanned(ctx, hashesOf("9.9.9.9")); !banned {
		t.Error("ban with future expiry should still apply")
	}

	past := now.Add(-time.Minute)
	if _, _, err := e.CreateOrUpdate(ctx, target, "spam", &past); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}
	if banned, _ := e.IsBanned(ctx, hashesOf("9.9.9.9")); banned {
		t.Error("expired ban must not apply even before the sweep")
	}

	swept, err := e.Sweep(ctx)
	if err != nil || swept != 1 {
		t.Errorf("Sweep = %d, %v; want 1", swept, err)
	}
}

func TestEnforcer_NetworkBan(t *testing.T) {
	ctx := context.Background()
	e := ban.NewEnforcer(mocks.NewMockBanRepository(), mocks.NewMockCommentRepository(), zerolog.Nop())

	comment := &models.Comment{IPHash: hashesOf("1.2.3.4").IP, NetHash: hashesOf("1.2.3.4").Net}
	if _, _, err := e.CreateOrUpdate(ctx, ban.HashesForScope(models.BanScopeNet, comment), "", nil); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}
	if banned, _ := e.IsBanned(ctx, hashesOf("1.2.3.200")); !banned {
		t.Error("network ban should cover the whole /24")
	}
	if banned, _ := e.IsBanned(ctx, hashesOf("1.2.4.4")); banned {
		t.Error("network ban must not cover another /24")
	}
}

func TestEnforcer_EmptyHashes(t *testing.T) {
	e := ban.NewEnforcer(mocks.NewMockBanRepository(), mocks.NewMockCommentRepository(), zerolog.Nop())
	if _, _, err := e.CreateOrUpdate(context.Background(), ban.Hashes{}, "", nil); !apperror.Is(err, apperror.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHashesForScope(t *testing.T) {
	c := &models.Comment{IPHash: "ip", NetHash: "net"}
	tests := []struct {
		scope models.BanScope
		want  ban.Hashes
	}{
		{models.BanScopeIP, ban.Hashes{IP: "ip"}},
		{models.BanScopeNet, ban.Hashes{Net: "net"}},
		{models.BanScopeBoth, ban.Hashes{IP: "ip", Net: "net"}},
	}
	for _, tt := range tests {
		if got := ban.HashesForScope(tt.scope, c); got != tt.want {
			t.Errorf("HashesForScope(%s) = %+v, want %+v", tt.scope, got, tt.want)
		}
	}
}

func TestEnforcer_PurgeMatching(t *testing.T) {
	ctx := context.Background()
	comments := mocks.NewMockCommentRepository()
	e := ban.NewEnforcer(mocks.NewMockBanRepository(), comments, zerolog.Nop())

	bad := hashesOf("5.5.5.5")
	good := hashesOf("6.6.6.6")
	for _, h := range []ban.Hashes{bad, bad, good} {
		comments.Create(ctx, &models.Comment{IPHash: h.IP, NetHash: h.Net, Body: "x"})
	}

	if removed := e.PurgeMatching(ctx, ban.Hashes{IP: bad.IP}); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if len(comments.Comments) != 1 {
		t.Errorf("expected the unrelated comment to survive, have %d", len(comments.Comments))
	}

	comments.DeleteError = errors.New("db down")
	if removed := e.PurgeMatching(ctx, good); removed != 0 {
		t.Errorf("failed purge should report 0, got %d", removed)
	}
}

func TestEnforcer_DeleteAndGet(t *testing.T) {
	ctx := context.Background()
	e := ban.NewEnforcer(mocks.NewMockBanRepository(), mocks.NewMockCommentRepository(), zerolog.Nop())

	b, _, _ := e.CreateOrUpdate(ctx, ban.Hashes{IP: "abc"}, "r", nil)
	if got, err := e.Get(ctx, b.ID); err != nil || got.Reason != "r" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := e.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.Delete(ctx, b.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("second delete should be NotFound, got %v", err)
	}
	if _, err := e.Get(ctx, b.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("Get after delete should be NotFound, got %v", err)
	}
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	bans := mocks.NewMockBanRepository()
	e := ban.NewEnforcer(bans, mocks.NewMockCommentRepository(), zerolog.Nop())
	pub := mocks.NewRecordingPublisher()
	locker := lock.NewLocalLocker()
	s := ban.NewSweeper(e, locker, pub, time.Minute, zerolog.Nop())

	past := time.Now().Add(-time.Hour)
	e.CreateOrUpdate(ctx, ban.Hashes{IP: "a"}, "", &past)
	e.CreateOrUpdate(ctx, ban.Hashes{IP: "b"}, "", nil)

	// another replica holds the lock
	release, _, _ := locker.Acquire(ctx, "ban-sweep", time.Minute)
	if n := s.RunOnce(ctx); n != 0 {
		t.Errorf("sweep should be skipped while locked, deleted %d", n)
	}
	release(ctx)

	if n := s.RunOnce(ctx); n != 1 {
		t.Errorf("RunOnce deleted %d, want 1", n)
	}
	if len(bans.Bans) != 1 {
		t.Errorf("permanent ban should remain, have %d", len(bans.Bans))
	}
	if pub.Count(events.SubjectBansSwept) != 1 {
		t.Errorf("expected one sweep event, got %v", pub.Subjects())
	}
}

func TestSweeper_StartStop(t *testing.T) {
	e := ban.NewEnforcer(mocks.NewMockBanRepository(), mocks.NewMockCommentRepository(), zerolog.Nop())
	s := ban.NewSweeper(e, nil, nil, 10*time.Millisecond, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
