package tests

import (
	"context"
	"testing"
	"time"

	"aegis-log/config"
	"aegis-log/core/auth"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

func saveSession(t *testing.T, env *testEnv, id string, userID int64, expiresAt time.Time) {
	t.Helper()
	now := time.Now().UTC()
	err := env.sessions.SaveSession(context.Background(), &store.SessionRecord{
		ID:         id,
		UserID:     userID,
		Username:   "alice",
		CSRFToken:  "csrf-" + id,
		IP:         "127.0.0.1",
		UserAgent:  "test-agent",
		CreatedAt:  now.Add(-time.Hour),
		LastSeenAt: now.Add(-time.Hour),
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		t.Fatalf("save session %s: %v", id, err)
	}
}

func TestExpiredSessionNotReturned(t *testing.T) {
	env := newTestEnv(t)
	uid := env.register("alice", "alice@example.com", "password123")
	ctx := context.Background()
	now := time.Now().UTC()

	saveSession(t, env, "sess-live", uid, now.Add(time.Hour))
	saveSession(t, env, "sess-dead", uid, now.Add(-time.Minute))

	live, err := env.sessions.GetSession(ctx, "sess-live")
	if err != nil || live == nil {
		t.Fatalf("live session missing: %v", err)
	}
	dead, err := env.sessions.GetSession(ctx, "sess-dead")
	if err != nil {
		t.Fatalf("get expired session: %v", err)
	}
	if dead != nil {
		t.Fatalf("expired session returned: %+v", dead)
	}

	status, _ := env.do("GET", "/auth/me", "sess-dead", nil)
	if status != 401 {
		t.Fatalf("expected 401 for expired session token, got %d", status)
	}
}

func TestUpdateActivityExtendsExpiry(t *testing.T) {
	env := newTestEnv(t)
	uid := env.register("alice", "alice@example.com", "password123")
	ctx := context.Background()
	now := time.Now().UTC()

	saveSession(t, env, "sess-1", uid, now.Add(time.Minute))
	if err := env.sessions.UpdateActivity(ctx, "sess-1", now, time.Hour); err != nil {
		t.Fatalf("update activity: %v", err)
	}
	rec, err := env.sessions.GetSession(ctx, "sess-1")
	if err != nil || rec == nil {
		t.Fatalf("session missing after activity update: %v", err)
	}
	if rec.ExpiresAt.Before(now.Add(30 * time.Minute)) {
		t.Fatalf("expiry not extended: %v", rec.ExpiresAt)
	}
	if rec.LastSeenAt.Before(now.Add(-time.Second)) {
		t.Fatalf("last_seen_at not refreshed: %v", rec.LastSeenAt)
	}
}

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	uid := env.register("alice", "alice@example.com", "password123")
	ctx := context.Background()
	now := time.Now().UTC()

	saveSession(t, env, "sess-live", uid, now.Add(time.Hour))
	saveSession(t, env, "sess-dead-1", uid, now.Add(-time.Minute))
	saveSession(t, env, "sess-dead-2", uid, now.Add(-time.Hour))

	sweeper := auth.NewSessionSweeper(config.SweeperConfig{Enabled: true}, env.sessions, utils.NewLogger())
	sweeper.RunOnce(ctx)

	deleted, err := env.sessions.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("sweeper left %d expired sessions behind", deleted)
	}
	live, err := env.sessions.GetSession(ctx, "sess-live")
	if err != nil || live == nil {
		t.Fatalf("live session removed by sweeper: %v", err)
	}
}
