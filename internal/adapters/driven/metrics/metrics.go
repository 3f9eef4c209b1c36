// Package metrics exposes connection flow and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FlowMetrics = (*Metrics)(nil)

const namespace = "madison"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	flowsStarted  *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	disconnects   *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	statesCleaned prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInflight  prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		flowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_flows_started_total",
			Help:      "Connect flows started, by provider.",
		}, []string{"provider"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks handled, by provider and result.",
		}, []string{"provider", "result"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_disconnects_total",
			Help:      "Provider connections removed, by provider.",
		}, []string{"provider"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_token_refreshes_total",
			Help:      "Token refresh attempts, by provider and result.",
		}, []string{"provider", "result"}),
		statesCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_states_cleaned_total",
			Help:      "Expired OAuth states removed by the janitor.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.flowsStarted,
		m.callbacks,
		m.disconnects,
		m.refreshes,
		m.statesCleaned,
		m.httpRequests,
		m.httpDuration,
		m.httpInflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) FlowStarted(provider domain.ProviderType) {
	m.flowsStarted.WithLabelValues(string(provider)).Inc()
}

func (m *Metrics) CallbackCompleted(provider domain.ProviderType, result string) {
	m.callbacks.WithLabelValues(providerLabel(provider), result).Inc()
}

func (m *Metrics) Disconnected(provider domain.ProviderType) {
	m.disconnects.WithLabelValues(string(provider)).Inc()
}

func (m *Metrics) TokenRefreshed(provider domain.ProviderType, result string) {
	m.refreshes.WithLabelValues(string(provider), result).Inc()
}

func (m *Metrics) StatesCleaned(count int64) {
	if count > 0 {
		m.statesCleaned.Add(float64(count))
	}
}

// Middleware instruments HTTP requests with counters, latency and inflight.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		path := normalizePath(r.URL.Path)

		m.httpInflight.Inc()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			m.httpInflight.Dec()
			m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

// providerLabel keeps label cardinality bounded when a callback arrives
// for a state that never named a provider.
func providerLabel(p domain.ProviderType) string {
	if p == "" {
		return "unknown"
	}
	return string(p)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

var (
	uuidSegmentRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
)

// normalizePath replaces id-like path segments with ":param".
func normalizePath(p string) string {
	segments := strings.Split(strings.SplitN(p, "?", 2)[0], "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			seg = ":param"
		}
		out = append(out, seg)
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 || uuidSegmentRE.MatchString(seg) || hexSegmentRE.MatchString(seg) {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
