package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven/mocks"
)

func seedStates(t *testing.T, store *mocks.MockOAuthStateStore, expired, live int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < expired; i++ {
		require.NoError(t, store.Save(context.Background(), &domain.OAuthState{
			State:     "expired-" + string(rune('a'+i)),
			Provider:  domain.ProviderTypeEtsy,
			CreatedAt: now.Add(-20 * time.Minute),
			ExpiresAt: now.Add(-10 * time.Minute),
		}))
	}
	for i := 0; i < live; i++ {
		require.NoError(t, store.Save(context.Background(), &domain.OAuthState{
			State:     "live-" + string(rune('a'+i)),
			Provider:  domain.ProviderTypeEtsy,
			CreatedAt: now,
			ExpiresAt: now.Add(10 * time.Minute),
		}))
	}
}

func newTestJanitor(store *mocks.MockOAuthStateStore, lock *mocks.MockDistributedLock, metrics *mocks.MockFlowMetrics) *StateJanitor {
	cfg := StateJanitorConfig{
		Store:    store,
		Metrics:  metrics,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Interval: 10 * time.Millisecond,
	}
	if lock != nil {
		cfg.Lock = lock
	}
	return NewStateJanitor(cfg)
}

func TestStateJanitor_SweepOnce(t *testing.T) {
	store := mocks.NewMockOAuthStateStore()
	metrics := mocks.NewMockFlowMetrics()
	seedStates(t, store, 3, 2)

	j := newTestJanitor(store, nil, metrics)
	removed, err := j.SweepOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), removed)
	assert.Equal(t, 2, store.Count())
	assert.Equal(t, 3, metrics.Count("cleaned"))
}

func TestStateJanitor_Run(t *testing.T) {
	store := mocks.NewMockOAuthStateStore()
	lock := mocks.NewMockDistributedLock()
	seedStates(t, store, 2, 1)

	j := newTestJanitor(store, lock, mocks.NewMockFlowMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	assert.Eventually(t, func() bool { return store.Count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}

	assert.GreaterOrEqual(t, lock.Acquisitions(janitorLockName), 1)
	assert.False(t, lock.IsHeld(janitorLockName))
}

func TestStateJanitor_SkipsWhenLockHeld(t *testing.T) {
	store := mocks.NewMockOAuthStateStore()
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(janitorLockName, time.Minute)
	seedStates(t, store, 2, 0)

	j := newTestJanitor(store, lock, mocks.NewMockFlowMetrics())
	j.sweep(context.Background())

	assert.Equal(t, 2, store.Count())
}

func TestStateJanitor_SkipsOnLockError(t *testing.T) {
	store := mocks.NewMockOAuthStateStore()
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}
	seedStates(t, store, 1, 0)

	j := newTestJanitor(store, lock, mocks.NewMockFlowMetrics())
	j.sweep(context.Background())

	assert.Equal(t, 1, store.Count())
}

func TestNewStateJanitor_Defaults(t *testing.T) {
	j := NewStateJanitor(StateJanitorConfig{Store: mocks.NewMockOAuthStateStore()})
	assert.Equal(t, time.Hour, j.interval)
	assert.Equal(t, 5*time.Minute, j.lockTTL)
	assert.NotNil(t, j.logger)
	assert.NotNil(t, j.metrics)
}
