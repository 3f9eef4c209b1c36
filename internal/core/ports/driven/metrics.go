package driven

import "github.com/madison-studio/madison-connect/internal/core/domain"

// FlowMetrics records connection lifecycle events.
type FlowMetrics interface {
	FlowStarted(provider domain.ProviderType)
	CallbackCompleted(provider domain.ProviderType, result string)
	Disconnected(provider domain.ProviderType)
	TokenRefreshed(provider domain.ProviderType, result string)
	StatesCleaned(count int64)
}
