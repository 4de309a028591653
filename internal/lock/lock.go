// Package lock guarantees at most one in-flight turn per game.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another holder owns the game lock.
var ErrLocked = errors.New("game is locked")

// DefaultTTL bounds how long a crashed holder can block a game. It outlasts
// four 90s collaborator calls.
const DefaultTTL = 7 * time.Minute

// Locker acquires per-game locks. The returned release func is safe to call
// more than once.
type Locker interface {
	Acquire(ctx context.Context, gameID uuid.UUID) (release func(), err error)
}

// releaseScript only deletes the key if we own the lock.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker holds game locks in Redis so several API processes can share
// them.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to redisURL and verifies the connection.
func NewRedisLocker(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisLocker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger.Info("Connected to Redis for turn locks", "ttl", ttl)
	return &RedisLocker{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func lockKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", gameID.String())
}

// Acquire sets the lock key with a fresh owner token, or fails with
// ErrLocked if the key exists.
func (l *RedisLocker) Acquire(ctx context.Context, gameID uuid.UUID) (func(), error) {
	key := lockKey(gameID)
	owner := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{key}, owner).Err(); err != nil {
				l.logger.Error("Failed to release game lock", "error", err, "game_id", gameID.String())
			}
		})
	}, nil
}

// Ping checks the Redis connection.
func (l *RedisLocker) Ping(ctx context.Context) error {
	if err := l.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}

// LocalLocker holds game locks in process memory. Used when no Redis URL is
// configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[uuid.UUID]struct{})}
}

func (l *LocalLocker) Acquire(_ context.Context, gameID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[gameID]; ok {
		return nil, ErrLocked
	}
	l.held[gameID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, gameID)
			l.mu.Unlock()
		})
	}, nil
}
