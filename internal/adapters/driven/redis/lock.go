package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "madison:lock:"

// Lock implements DistributedLock using Redis SET NX with TTL.
// Every successful Acquire stores a fresh token as the key's value, and
// Release and Extend act only while that token is still there. Two
// goroutines of one process therefore never release each other's lock.
type Lock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string // lock name -> token of our acquisition
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client *redis.Client) *Lock {
	return &Lock{
		client: client,
		tokens: make(map[string]string),
	}
}

// Acquire attempts to take the named lock for ttl.
// Returns false when any holder, including this process, already has it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[name] = token
	l.mu.Unlock()
	return true, nil
}

// ownedScript deletes the key (ARGV[2] == "0") or sets its TTL in
// milliseconds, but only while it still holds token ARGV[1].
var ownedScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) ~= ARGV[1] then
		return 0
	end
	if ARGV[2] == "0" then
		return redis.call("del", KEYS[1])
	end
	return redis.call("pexpire", KEYS[1], ARGV[2])
`)

func (l *Lock) token(name string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[name]
	return t, ok
}

// Release drops the named lock if our acquisition still owns it.
// Releasing a lock that was never taken, or that expired, is not an error.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	token, ok := l.tokens[name]
	delete(l.tokens, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := ownedScript.Run(ctx, l.client, []string{lockPrefix + name}, token, "0").Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend resets the TTL of a lock we hold.
// Fails once the lock expired or was taken over by another holder.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	if ttl < time.Millisecond {
		return fmt.Errorf("extend lock %s: ttl must be at least 1ms", name)
	}
	token, ok := l.token(name)
	if !ok {
		return fmt.Errorf("lock %s not held", name)
	}

	ms := strconv.FormatInt(ttl.Milliseconds(), 10)
	n, err := ownedScript.Run(ctx, l.client, []string{lockPrefix + name}, token, ms).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		l.mu.Lock()
		delete(l.tokens, name)
		l.mu.Unlock()
		return fmt.Errorf("lock %s no longer held", name)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
