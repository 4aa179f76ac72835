package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreWithClient(client), mr
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRefreshSession(ctx, "hash1", "user_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession: %v", err)
	}

	user, err := s.LookupRefreshSession(ctx, "hash1")
	if err != nil {
		t.Fatalf("LookupRefreshSession: %v", err)
	}
	if user.ID != "user_1" {
		t.Errorf("expected user_1, got %q", user.ID)
	}
}

func TestLookupUnknownToken(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.LookupRefreshSession(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown token")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRefreshSession(ctx, "hash1", "user_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession: %v", err)
	}
	if err := s.RevokeRefreshSession(ctx, "hash1"); err != nil {
		t.Fatalf("RevokeRefreshSession: %v", err)
	}
	if _, err := s.LookupRefreshSession(ctx, "hash1"); err == nil {
		t.Fatal("expected error after revoke")
	}
}

func TestRefreshSessionExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRefreshSession(ctx, "hash1", "user_1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.LookupRefreshSession(ctx, "hash1"); err == nil {
		t.Fatal("expected error after expiry")
	}
}
