package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driving"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"organizationId is required"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// SuccessResponse is returned by mutations with no other payload
// @Description Mutation result
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings PostgreSQL and Redis when configured
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "component", "postgres", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "component", "redis", "error", err)
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Connection endpoints

// handleStartConnect godoc
// @Summary      Start a connect flow
// @Description  Creates a single-use state and returns the provider authorization URL
// @Tags         OAuth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string                true  "Provider (etsy, linkedin, google_calendar, shopify)"
// @Param        request   body      driving.StartRequest  true  "Connect target"
// @Success      200       {object}  driving.StartResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse  "Unknown provider"
// @Failure      500       {object}  ErrorResponse  "Provider not configured"
// @Router       /oauth/{provider}/start [post]
func (s *Server) handleStartConnect(w http.ResponseWriter, r *http.Request) {
	provider, err := domain.ParseProviderType(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}

	var req driving.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Provider = provider

	resp, err := s.connectionService.Start(r.Context(), GetAuthContext(r.Context()), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCallback godoc
// @Summary      OAuth callback
// @Description  Receives the provider redirect and always answers with a redirect back to the app
// @Tags         OAuth
// @Param        provider           path   string  true   "Provider"
// @Param        code               query  string  false  "Authorization code"
// @Param        state              query  string  false  "State from the start call"
// @Param        error              query  string  false  "Provider error code"
// @Param        error_description  query  string  false  "Provider error description"
// @Success      302
// @Router       /oauth/{provider}/callback [get]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	// An unknown provider cannot match any stored state.
	provider, _ := domain.ParseProviderType(r.PathValue("provider"))

	q := r.URL.Query()
	result := s.connectionService.Callback(r.Context(), driving.CallbackRequest{
		Provider:         provider,
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// handleDisconnect godoc
// @Summary      Disconnect a provider
// @Description  Deletes the connection and unlinks listings synced through it
// @Tags         OAuth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string                     true  "Provider"
// @Param        request   body      driving.DisconnectRequest  true  "Connection to remove"
// @Success      200       {object}  SuccessResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /oauth/{provider}/disconnect [post]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTarget(w, r)
	if !ok {
		return
	}

	if err := s.connectionService.Disconnect(r.Context(), GetAuthContext(r.Context()), req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleRefreshConnection godoc
// @Summary      Refresh a connection's tokens
// @Tags         OAuth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string                     true  "Provider"
// @Param        request   body      driving.DisconnectRequest  true  "Connection to refresh"
// @Success      200       {object}  domain.ConnectionSummary
// @Failure      404       {object}  ErrorResponse
// @Failure      409       {object}  ErrorResponse  "No refresh token or refresh in progress"
// @Failure      502       {object}  ErrorResponse  "Provider refresh failed"
// @Router       /oauth/{provider}/refresh [post]
func (s *Server) handleRefreshConnection(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTarget(w, r)
	if !ok {
		return
	}

	summary, err := s.connectionService.Refresh(r.Context(), GetAuthContext(r.Context()), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleListConnections godoc
// @Summary      List an organization's connections
// @Tags         OAuth
// @Produce      json
// @Security     BearerAuth
// @Param        organizationId  path      string  true  "Organization ID"
// @Success      200             {array}   domain.ConnectionSummary
// @Failure      403             {object}  ErrorResponse
// @Router       /organizations/{organizationId}/connections [get]
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.connectionService.List(r.Context(), GetAuthContext(r.Context()), r.PathValue("organizationId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if conns == nil {
		conns = []*domain.ConnectionSummary{}
	}

	writeJSON(w, http.StatusOK, conns)
}

// decodeTarget parses the provider path value and an {organizationId} body.
func (s *Server) decodeTarget(w http.ResponseWriter, r *http.Request) (driving.DisconnectRequest, bool) {
	var req driving.DisconnectRequest
	provider, err := domain.ParseProviderType(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown provider")
		return req, false
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	req.Provider = provider
	return req, true
}

// writeServiceError maps a service error to a status code and message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *domain.ConfigurationError

	switch {
	case errors.As(err, &cfgErr):
		s.logger.Error("provider not configured", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, cfgErr.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, domain.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, "unknown provider")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "connection not found")
	case errors.Is(err, domain.ErrNoRefreshToken):
		writeError(w, http.StatusConflict, "connection has no refresh token; reconnect the provider")
	case errors.Is(err, domain.ErrRefreshInProgress):
		writeError(w, http.StatusConflict, "token refresh already in progress")
	case errors.Is(err, domain.ErrProviderExchange):
		writeError(w, http.StatusBadGateway, "provider token refresh failed")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Helper functions

// decodeJSON decodes a single JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	if dec.More() {
		return errors.New("invalid request body: unexpected trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
