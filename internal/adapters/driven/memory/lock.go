package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local DistributedLock. It only coordinates goroutines
// within one instance.
type Lock struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewLock creates a new in-process lock.
func NewLock() *Lock {
	return &Lock{c: gocache.New(gocache.NoExpiration, 0)}
}

// Acquire takes the named lock until ttl elapses or Release is called.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.c.Add(name, struct{}{}, ttl) == nil, nil
}

func (l *Lock) Release(ctx context.Context, name string) error {
	l.c.Delete(name)
	return nil
}

// Extend resets the TTL of a held lock.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.c.Replace(name, struct{}{}, ttl); err != nil {
		return fmt.Errorf("lock %s not held", name)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
