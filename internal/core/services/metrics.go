package services

import (
	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.FlowMetrics = NopMetrics{}

// NopMetrics discards all flow metrics.
type NopMetrics struct{}

func (NopMetrics) FlowStarted(domain.ProviderType)               {}
func (NopMetrics) CallbackCompleted(domain.ProviderType, string) {}
func (NopMetrics) Disconnected(domain.ProviderType)              {}
func (NopMetrics) TokenRefreshed(domain.ProviderType, string)    {}
func (NopMetrics) StatesCleaned(int64)                           {}
