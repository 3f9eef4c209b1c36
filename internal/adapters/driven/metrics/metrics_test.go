package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestFlowMetrics(t *testing.T) {
	m := New()

	m.FlowStarted(domain.ProviderTypeEtsy)
	m.FlowStarted(domain.ProviderTypeEtsy)
	m.CallbackCompleted(domain.ProviderTypeEtsy, "success")
	m.CallbackCompleted("", "invalid_state")
	m.Disconnected(domain.ProviderTypeShopify)
	m.TokenRefreshed(domain.ProviderTypeGoogleCalendar, "error")
	m.StatesCleaned(3)
	m.StatesCleaned(0)

	body := scrape(t, m)
	assert.Contains(t, body, `madison_oauth_flows_started_total{provider="etsy"} 2`)
	assert.Contains(t, body, `madison_oauth_callbacks_total{provider="etsy",result="success"} 1`)
	assert.Contains(t, body, `madison_oauth_callbacks_total{provider="unknown",result="invalid_state"} 1`)
	assert.Contains(t, body, `madison_oauth_disconnects_total{provider="shopify"} 1`)
	assert.Contains(t, body, `madison_oauth_token_refreshes_total{provider="google_calendar",result="error"} 1`)
	assert.Contains(t, body, "madison_oauth_states_cleaned_total 3")
	assert.Contains(t, body, "go_goroutines")
}

func TestMiddleware(t *testing.T) {
	m := New()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/3f2b8c4e-1d2a-4b5c-9e8f-0a1b2c3d4e5f/connections", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	body := scrape(t, m)
	assert.Contains(t, body, `madison_http_requests_total{method="GET",path="/api/v1/organizations/:param/connections",status="418"} 1`)
	assert.Contains(t, body, "madison_http_inflight_requests 0")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/health", "/health"},
		{"/api/v1/oauth/etsy/start", "/api/v1/oauth/etsy/start"},
		{"/api/v1/organizations/12345/x", "/api/v1/organizations/:param/x"},
		{"/api/v1/organizations/deadbeefdeadbeef", "/api/v1/organizations/:param"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}
