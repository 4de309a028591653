package lock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

func setupTestRedis(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := NewRedisLocker(context.Background(), "redis://"+mr.Addr(), time.Minute, logger)
	if err != nil {
		t.Fatalf("Failed to create locker: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := setupTestRedis(t)
	ctx := context.Background()
	gameID := uuid.New()

	release, err := l.Acquire(ctx, gameID)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !mr.Exists(lockKey(gameID)) {
		t.Fatal("expected lock key to exist")
	}
	if ttl := mr.TTL(lockKey(gameID)); ttl != time.Minute {
		t.Errorf("expected TTL of 1m, got %v", ttl)
	}

	if _, err := l.Acquire(ctx, gameID); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked on second acquire, got %v", err)
	}

	// Other games are independent
	other, err := l.Acquire(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Acquire for other game failed: %v", err)
	}
	other()

	release()
	release()
	if mr.Exists(lockKey(gameID)) {
		t.Error("expected lock key to be removed after release")
	}

	again, err := l.Acquire(ctx, gameID)
	if err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
	again()
}

func TestRedisLocker_ReleaseOnlyOwnLock(t *testing.T) {
	l, mr := setupTestRedis(t)
	ctx := context.Background()
	gameID := uuid.New()

	release, err := l.Acquire(ctx, gameID)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Lock expires and someone else takes it
	mr.FastForward(2 * time.Minute)
	if err := mr.Set(lockKey(gameID), "another-owner"); err != nil {
		t.Fatalf("failed to set key: %v", err)
	}

	release()
	got, err := mr.Get(lockKey(gameID))
	if err != nil || got != "another-owner" {
		t.Errorf("release removed a lock it does not own: %q, %v", got, err)
	}
}

func TestNewRedisLocker_BadURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewRedisLocker(context.Background(), "not a url", time.Minute, logger); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()
	gameID := uuid.New()

	release, err := l.Acquire(ctx, gameID)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := l.Acquire(ctx, gameID); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	release()
	release()
	release2, err := l.Acquire(ctx, gameID)
	if err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
	release2()
}
