package mocks

import (
	"sort"
	"strings"
	"sync"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.FlowMetrics = (*MockFlowMetrics)(nil)

// MockFlowMetrics counts recorded events by name.
type MockFlowMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMockFlowMetrics creates a new MockFlowMetrics
func NewMockFlowMetrics() *MockFlowMetrics {
	return &MockFlowMetrics{counts: make(map[string]int)}
}

func (m *MockFlowMetrics) inc(key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] += n
}

func (m *MockFlowMetrics) FlowStarted(p domain.ProviderType) { m.inc("started:"+string(p), 1) }

func (m *MockFlowMetrics) CallbackCompleted(p domain.ProviderType, result string) {
	m.inc("callback:"+string(p)+":"+result, 1)
}

func (m *MockFlowMetrics) Disconnected(p domain.ProviderType) { m.inc("disconnected:"+string(p), 1) }

func (m *MockFlowMetrics) TokenRefreshed(p domain.ProviderType, result string) {
	m.inc("refreshed:"+string(p)+":"+result, 1)
}

func (m *MockFlowMetrics) StatesCleaned(count int64) { m.inc("cleaned", int(count)) }

// Count returns the count recorded under key, e.g. "callback:etsy:success".
func (m *MockFlowMetrics) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

// Keys returns the recorded keys with the given prefix, sorted.
func (m *MockFlowMetrics) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.counts {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
