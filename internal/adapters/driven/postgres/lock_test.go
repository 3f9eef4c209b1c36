package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisoryLock_AcquireExtendRelease(t *testing.T) {
	rec := &recorder{columns: []string{"locked"}, rows: [][]driver.Value{{true}}}
	lock := NewAdvisoryLock(newRecorderDB(t, rec))
	ctx := context.Background()
	name := "refresh:org-1:etsy"

	assert.Error(t, lock.Extend(ctx, name, time.Minute), "extend without holding")

	acquired, err := lock.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// Held by this process: a second acquire does not reach the server
	acquired, err = lock.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Len(t, rec.queries(), 1)

	require.NoError(t, lock.Extend(ctx, name, time.Minute))

	rec.mu.Lock()
	rec.pingErr = errors.New("connection reset")
	rec.mu.Unlock()
	assert.Error(t, lock.Extend(ctx, name, time.Minute), "session lost")

	rec.mu.Lock()
	rec.pingErr = nil
	rec.mu.Unlock()
	require.NoError(t, lock.Release(ctx, name))
	assert.Contains(t, rec.queries()[1], "pg_advisory_unlock")
	assert.Error(t, lock.Extend(ctx, name, time.Minute), "extend after release")
}

func TestAdvisoryLock_NotAcquired(t *testing.T) {
	rec := &recorder{columns: []string{"locked"}, rows: [][]driver.Value{{false}}}
	lock := NewAdvisoryLock(newRecorderDB(t, rec))

	acquired, err := lock.Acquire(context.Background(), "oauth-state-janitor", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Error(t, lock.Extend(context.Background(), "oauth-state-janitor", time.Minute))
}
