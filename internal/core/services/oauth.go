package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
	"github.com/madison-studio/madison-connect/internal/core/ports/driving"
)

// Ensure connectionService implements ConnectionService
var _ driving.ConnectionService = (*connectionService)(nil)

const (
	// stateBytes and verifierBytes encode to 43 base64url characters.
	stateBytes    = 32
	verifierBytes = 32

	defaultRedirectPath   = "/settings/integrations"
	defaultRefreshLockTTL = 30 * time.Second
	refreshPollInterval   = 200 * time.Millisecond

	reasonProviderError = "provider_error"
)

// ConnectionServiceConfig holds configuration for the connection service.
type ConnectionServiceConfig struct {
	// Providers resolves OAuth clients per provider.
	Providers driven.ProviderRegistry

	// States manages OAuth flow state.
	States driven.OAuthStateStore

	// Connections persists organization connections.
	Connections driven.ConnectionStore

	// Memberships resolves caller roles.
	Memberships driven.MembershipStore

	// Vault encrypts tokens before persistence.
	Vault driven.CredentialVault

	Lock    driven.DistributedLock // Optional: serializes token refreshes across instances
	Metrics driven.FlowMetrics     // Optional
	Logger  *slog.Logger

	// AppURL is the frontend base URL. Redirects default to its
	// integrations settings page.
	// Example: "https://app.madison.studio"
	AppURL string

	// AllowedRedirectOrigins are extra origins a flow may redirect back to.
	AllowedRedirectOrigins []string

	StateTTL       time.Duration // default: 10m
	RefreshLockTTL time.Duration // default: 30s

	// Now overrides the clock in tests.
	Now func() time.Time
}

// connectionService implements the ConnectionService interface.
type connectionService struct {
	providers      driven.ProviderRegistry
	states         driven.OAuthStateStore
	connections    driven.ConnectionStore
	memberships    driven.MembershipStore
	vault          driven.CredentialVault
	lock           driven.DistributedLock
	metrics        driven.FlowMetrics
	logger         *slog.Logger
	appURL         string
	allowedOrigins map[string]bool
	stateTTL       time.Duration
	refreshLockTTL time.Duration
	now            func() time.Time
}

// NewConnectionService creates a new connection service.
func NewConnectionService(cfg ConnectionServiceConfig) driving.ConnectionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	stateTTL := cfg.StateTTL
	if stateTTL == 0 {
		stateTTL = domain.DefaultStateTTL
	}
	lockTTL := cfg.RefreshLockTTL
	if lockTTL == 0 {
		lockTTL = defaultRefreshLockTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	appURL := strings.TrimRight(cfg.AppURL, "/")
	allowed := make(map[string]bool)
	if o := originOf(appURL); o != "" {
		allowed[o] = true
	}
	for _, raw := range cfg.AllowedRedirectOrigins {
		if o := originOf(raw); o != "" {
			allowed[o] = true
		}
	}

	return &connectionService{
		providers:      cfg.Providers,
		states:         cfg.States,
		connections:    cfg.Connections,
		memberships:    cfg.Memberships,
		vault:          cfg.Vault,
		lock:           cfg.Lock,
		metrics:        metrics,
		logger:         logger,
		appURL:         appURL,
		allowedOrigins: allowed,
		stateTTL:       stateTTL,
		refreshLockTTL: lockTTL,
		now:            now,
	}
}

// Start begins a connect flow.
// It generates state and PKCE credentials, stores them, and returns the authorization URL.
func (s *connectionService) Start(ctx context.Context, authCtx *domain.AuthContext, req driving.StartRequest) (*driving.StartResponse, error) {
	if !isSupported(req.Provider) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, req.Provider)
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		return nil, fmt.Errorf("%w: organizationId is required", domain.ErrInvalidInput)
	}
	if authCtx == nil || authCtx.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := s.requireManager(ctx, req.OrganizationID, authCtx.UserID); err != nil {
		return nil, err
	}

	client, err := s.providers.Client(req.Provider)
	if err != nil {
		return nil, err
	}

	redirectURL, err := s.resolveRedirect(req.RedirectURL)
	if err != nil {
		return nil, err
	}

	var shopDomain string
	if req.Provider == domain.ProviderTypeShopify {
		if shopDomain, err = domain.NormalizeShopDomain(req.ShopDomain); err != nil {
			return nil, err
		}
	}

	// Generate state (CSRF protection)
	state, err := generateRandomString(stateBytes)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	// Generate PKCE code verifier
	var codeVerifier string
	if client.UsesPKCE() {
		if codeVerifier, err = generateRandomString(verifierBytes); err != nil {
			return nil, fmt.Errorf("generate code verifier: %w", err)
		}
	}

	authURL, err := client.AuthCodeURL(driven.AuthCodeRequest{
		State:        state,
		CodeVerifier: codeVerifier,
		Scopes:       s.providers.Scopes(req.Provider),
		ShopDomain:   shopDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth url: %w", err)
	}

	// Store state for validation during callback
	now := s.now()
	expiresAt := now.Add(s.stateTTL)
	if err := s.states.Save(ctx, &domain.OAuthState{
		State:          state,
		Provider:       req.Provider,
		CodeVerifier:   codeVerifier,
		OrganizationID: req.OrganizationID,
		UserID:         authCtx.UserID,
		RedirectURL:    redirectURL,
		ShopDomain:     shopDomain,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
	}); err != nil {
		return nil, domain.PersistenceError("save oauth state", err)
	}

	s.metrics.FlowStarted(req.Provider)
	s.logger.Info("oauth flow started",
		"provider", req.Provider,
		"organization_id", req.OrganizationID,
		"user_id", authCtx.UserID,
		"pkce", client.UsesPKCE(),
	)

	return &driving.StartResponse{
		AuthURL:   authURL,
		State:     state,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Callback completes the handshake.
// Every outcome resolves to a redirect; failures carry a reason code.
func (s *connectionService) Callback(ctx context.Context, req driving.CallbackRequest) *driving.CallbackResult {
	// Consume the state first so it can never be replayed, even when the
	// provider reported an error.
	var oauthState *domain.OAuthState
	if req.State != "" {
		st, err := s.states.GetAndDelete(ctx, req.State)
		if err != nil {
			return s.callbackFailure(req.Provider, nil, driving.ReasonPersistenceFailed,
				domain.PersistenceError("consume oauth state", err))
		}
		oauthState = st
	}

	if oauthState != nil && (oauthState.Provider != req.Provider || !s.now().Before(oauthState.ExpiresAt)) {
		oauthState = nil
	}

	// Check for error from provider
	if req.Error != "" {
		return s.callbackFailure(req.Provider, oauthState, providerErrorReason(req.Error),
			fmt.Errorf("provider returned error %q", req.Error))
	}

	if oauthState == nil {
		return s.callbackFailure(req.Provider, nil, driving.ReasonInvalidState, domain.ErrInvalidState)
	}
	if req.Code == "" {
		return s.callbackFailure(req.Provider, oauthState, driving.ReasonMissingCode,
			fmt.Errorf("%w: authorization code is required", domain.ErrInvalidInput))
	}

	// The actor may have lost their role while on the provider's consent page.
	if err := s.requireManager(ctx, oauthState.OrganizationID, oauthState.UserID); err != nil {
		reason := driving.ReasonForbidden
		if !errors.Is(err, domain.ErrForbidden) {
			reason = driving.ReasonPersistenceFailed
		}
		return s.callbackFailure(req.Provider, oauthState, reason, err)
	}

	client, err := s.providers.Client(req.Provider)
	if err != nil {
		return s.callbackFailure(req.Provider, oauthState, driving.ReasonNotConfigured, err)
	}

	// Exchange code for tokens
	token, err := client.Exchange(ctx, driven.ExchangeRequest{
		Code:         req.Code,
		CodeVerifier: oauthState.CodeVerifier,
		ShopDomain:   oauthState.ShopDomain,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrProviderExchange) {
			err = &domain.ProviderExchangeError{Provider: req.Provider, Err: err}
		}
		return s.callbackFailure(req.Provider, oauthState, driving.ReasonExchangeFailed, err)
	}

	// Account identity is informational only
	info, err := client.AccountInfo(ctx, token, oauthState.ShopDomain)
	if err != nil {
		s.logger.Warn("fetch provider account failed",
			"provider", req.Provider,
			"organization_id", oauthState.OrganizationID,
			"error", err,
		)
		info = nil
	}

	conn, err := s.newConnection(oauthState, token, info)
	if err != nil {
		return s.callbackFailure(req.Provider, oauthState, driving.ReasonPersistenceFailed, err)
	}
	if err := s.connections.Upsert(ctx, conn); err != nil {
		return s.callbackFailure(req.Provider, oauthState, driving.ReasonPersistenceFailed,
			domain.PersistenceError("upsert connection", err))
	}

	s.metrics.CallbackCompleted(req.Provider, driving.CallbackStatusSuccess)
	s.logger.Info("provider connected",
		"provider", req.Provider,
		"organization_id", conn.OrganizationID,
		"connection_id", conn.ID,
		"account_id", conn.AccountID,
	)

	return &driving.CallbackResult{
		RedirectURL: withQuery(oauthState.RedirectURL, url.Values{
			driving.CallbackParamStatus:   {driving.CallbackStatusSuccess},
			driving.CallbackParamProvider: {string(req.Provider)},
		}),
		Connection: conn.ToSummary(),
	}
}

// Disconnect removes a connection and unlinks its listings in one step.
func (s *connectionService) Disconnect(ctx context.Context, authCtx *domain.AuthContext, req driving.DisconnectRequest) error {
	if err := s.validateTarget(authCtx, req); err != nil {
		return err
	}
	if err := s.requireManager(ctx, req.OrganizationID, authCtx.UserID); err != nil {
		return err
	}

	unlinked, err := s.connections.Disconnect(ctx, req.OrganizationID, req.Provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.PersistenceError("disconnect", err)
	}

	s.metrics.Disconnected(req.Provider)
	s.logger.Info("provider disconnected",
		"provider", req.Provider,
		"organization_id", req.OrganizationID,
		"user_id", authCtx.UserID,
		"listings_unlinked", unlinked,
	)
	return nil
}

// Refresh forces a token refresh.
func (s *connectionService) Refresh(ctx context.Context, authCtx *domain.AuthContext, req driving.DisconnectRequest) (*domain.ConnectionSummary, error) {
	if err := s.validateTarget(authCtx, req); err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, req.OrganizationID, authCtx.UserID); err != nil {
		return nil, err
	}

	conn, err := s.connections.Get(ctx, req.OrganizationID, req.Provider)
	if err != nil {
		return nil, err
	}
	if !conn.HasRefreshToken() {
		return nil, domain.ErrNoRefreshToken
	}

	updated, err := s.refresh(ctx, conn, true)
	if err != nil {
		return nil, err
	}
	return updated.ToSummary(), nil
}

// List returns the organization's connections.
func (s *connectionService) List(ctx context.Context, authCtx *domain.AuthContext, organizationID string) ([]*domain.ConnectionSummary, error) {
	if authCtx == nil || authCtx.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organizationId is required", domain.ErrInvalidInput)
	}

	role, err := s.memberships.GetRole(ctx, organizationID, authCtx.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if !role.CanViewConnections() {
		return nil, domain.ErrForbidden
	}

	conns, err := s.connections.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	summaries := make([]*domain.ConnectionSummary, len(conns))
	for i, c := range conns {
		summaries[i] = c.ToSummary()
	}
	return summaries, nil
}

// AccessToken returns a usable access token, refreshing it when it is
// about to expire.
func (s *connectionService) AccessToken(ctx context.Context, organizationID string, provider domain.ProviderType) (string, error) {
	conn, err := s.connections.Get(ctx, organizationID, provider)
	if err != nil {
		return "", err
	}

	if conn.NeedsRefresh() && conn.HasRefreshToken() {
		refreshed, err := s.refresh(ctx, conn, false)
		switch {
		case err == nil:
			conn = refreshed
		case conn.IsExpired():
			return "", err
		default:
			s.logger.Warn("token refresh failed, using current token",
				"provider", provider,
				"organization_id", organizationID,
				"error", err,
			)
		}
	}

	token, err := s.vault.Decrypt(conn.AccessToken)
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	return token, nil
}

// refresh exchanges the refresh token for a new token set under the
// per-connection lock. Unless force is set, a connection refreshed by
// another caller in the meantime is returned as is.
func (s *connectionService) refresh(ctx context.Context, conn *domain.Connection, force bool) (*domain.Connection, error) {
	if s.lock != nil {
		lockName := refreshLockName(conn.OrganizationID, conn.Provider)
		acquired, err := s.lock.Acquire(ctx, lockName, s.refreshLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !acquired {
			return s.awaitRefresh(ctx, conn)
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
				s.logger.Warn("failed to release refresh lock", "lock", lockName, "error", err)
			}
		}()

		// Re-read: another instance may have refreshed before we got the lock.
		latest, err := s.connections.Get(ctx, conn.OrganizationID, conn.Provider)
		if err != nil {
			return nil, err
		}
		if !force && !latest.NeedsRefresh() {
			return latest, nil
		}
		conn = latest
	}

	if !conn.HasRefreshToken() {
		return nil, domain.ErrNoRefreshToken
	}

	client, err := s.providers.Client(conn.Provider)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.vault.Decrypt(*conn.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}

	// The provider call starts with a full lock TTL. Once the lock is lost,
	// another caller may already be rotating the refresh token.
	if s.lock != nil {
		lockName := refreshLockName(conn.OrganizationID, conn.Provider)
		if err := s.lock.Extend(ctx, lockName, s.refreshLockTTL); err != nil {
			s.logger.Warn("refresh lock lost before provider call", "lock", lockName, "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrRefreshInProgress, err)
		}
	}

	token, err := client.Refresh(ctx, refreshToken, conn.ShopDomain)
	if err != nil {
		if !errors.Is(err, domain.ErrProviderExchange) {
			err = &domain.ProviderExchangeError{Provider: conn.Provider, Err: err}
		}
		s.metrics.TokenRefreshed(conn.Provider, "error")
		if serr := s.connections.UpdateStatus(ctx, conn.ID, domain.ConnectionStatusError, "token refresh failed"); serr != nil {
			s.logger.Warn("failed to record refresh failure", "connection_id", conn.ID, "error", serr)
		}
		s.logger.Warn("token refresh failed",
			"provider", conn.Provider,
			"organization_id", conn.OrganizationID,
			"error", err,
		)
		return nil, err
	}

	access, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	// Providers that do not rotate refresh tokens keep the old one.
	refresh := conn.RefreshToken
	if token.RefreshToken != "" {
		enc, err := s.vault.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		refresh = &enc
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		t := token.Expiry
		expiresAt = &t
	}

	if err := s.connections.UpdateTokens(ctx, conn.ID, access, refresh, expiresAt); err != nil {
		return nil, domain.PersistenceError("update tokens", err)
	}
	if conn.Status == domain.ConnectionStatusError {
		if err := s.connections.UpdateStatus(ctx, conn.ID, domain.ConnectionStatusIdle, ""); err != nil {
			return nil, domain.PersistenceError("update status", err)
		}
		conn.Status = domain.ConnectionStatusIdle
		conn.LastError = ""
	}

	s.metrics.TokenRefreshed(conn.Provider, "success")
	s.logger.Info("token refreshed",
		"provider", conn.Provider,
		"organization_id", conn.OrganizationID,
		"connection_id", conn.ID,
	)
	s.logger.Debug("refreshed token set",
		"connection_id", conn.ID,
		"access_token", domain.MaskToken(token.AccessToken),
		"refresh_rotated", token.RefreshToken != "",
		"expires_at", expiresAt,
	)

	conn.AccessToken = access
	conn.RefreshToken = refresh
	conn.ExpiresAt = expiresAt
	conn.UpdatedAt = s.now()
	return conn, nil
}

// awaitRefresh waits for the lock holder to store a new token set.
func (s *connectionService) awaitRefresh(ctx context.Context, conn *domain.Connection) (*domain.Connection, error) {
	deadline := time.NewTimer(s.refreshLockTTL)
	defer deadline.Stop()
	ticker := time.NewTicker(refreshPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, domain.ErrRefreshInProgress
		case <-ticker.C:
			latest, err := s.connections.Get(ctx, conn.OrganizationID, conn.Provider)
			if err != nil {
				return nil, err
			}
			if latest.UpdatedAt.After(conn.UpdatedAt) {
				if latest.Status == domain.ConnectionStatusError {
					return nil, &domain.ProviderExchangeError{
						Provider: conn.Provider,
						Err:      errors.New(latest.LastError),
					}
				}
				return latest, nil
			}
		}
	}
}

func (s *connectionService) newConnection(state *domain.OAuthState, token *domain.OAuthToken, info *domain.AccountInfo) (*domain.Connection, error) {
	access, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	var refresh *domain.EncryptedValue
	if token.RefreshToken != "" {
		enc, err := s.vault.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		refresh = &enc
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		t := token.Expiry
		expiresAt = &t
	}

	scopes := token.Scopes
	if len(scopes) == 0 {
		scopes = s.providers.Scopes(state.Provider)
	}

	now := s.now()
	conn := &domain.Connection{
		ID:             uuid.NewString(),
		OrganizationID: state.OrganizationID,
		Provider:       state.Provider,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenType:      token.TokenType,
		ExpiresAt:      expiresAt,
		Scopes:         scopes,
		ShopDomain:     state.ShopDomain,
		Status:         domain.ConnectionStatusIdle,
		ConnectedBy:    state.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if info != nil {
		conn.AccountID = info.ID
		conn.AccountName = info.Name
	}
	return conn, nil
}

func (s *connectionService) callbackFailure(provider domain.ProviderType, state *domain.OAuthState, reason string, err error) *driving.CallbackResult {
	target := s.appURL
	attrs := []any{"provider", provider, "reason", reason}
	if state != nil {
		target = state.RedirectURL
		attrs = append(attrs, "organization_id", state.OrganizationID)
	}
	s.logger.Warn("oauth callback failed", append(attrs, "error", err)...)
	s.metrics.CallbackCompleted(provider, callbackResult(reason))

	return &driving.CallbackResult{
		RedirectURL: withQuery(target, url.Values{
			driving.CallbackParamStatus:   {driving.CallbackStatusError},
			driving.CallbackParamProvider: {string(provider)},
			driving.CallbackParamReason:   {reason},
		}),
		Err: err,
	}
}

// requireManager checks the user may manage the organization's connections.
func (s *connectionService) requireManager(ctx context.Context, organizationID, userID string) error {
	role, err := s.memberships.GetRole(ctx, organizationID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: not a member of the organization", domain.ErrForbidden)
		}
		return fmt.Errorf("get membership: %w", err)
	}
	if !role.CanManageConnections() {
		return fmt.Errorf("%w: role %s cannot manage connections", domain.ErrForbidden, role)
	}
	return nil
}

func (s *connectionService) validateTarget(authCtx *domain.AuthContext, req driving.DisconnectRequest) error {
	if !isSupported(req.Provider) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProvider, req.Provider)
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		return fmt.Errorf("%w: organizationId is required", domain.ErrInvalidInput)
	}
	if authCtx == nil || authCtx.UserID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

// resolveRedirect returns the browser target for the end of the flow.
// Only the app's own origin and explicitly allowed origins are accepted.
func (s *connectionService) resolveRedirect(raw string) (string, error) {
	if raw == "" {
		return s.appURL + defaultRedirectPath, nil
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: redirectUrl must be an absolute URL", domain.ErrInvalidInput)
	}
	if !s.allowedOrigins[originOf(raw)] {
		return "", fmt.Errorf("%w: redirectUrl origin is not allowed", domain.ErrInvalidInput)
	}
	return raw, nil
}

// generateRandomString returns n random bytes encoded as unpadded base64url.
func generateRandomString(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func refreshLockName(organizationID string, provider domain.ProviderType) string {
	return "refresh:" + organizationID + ":" + string(provider)
}

func isSupported(p domain.ProviderType) bool {
	for _, sp := range domain.SupportedProviders() {
		if sp == p {
			return true
		}
	}
	return false
}

// originOf returns the lowercased scheme://host of a URL, or "" if it has none.
func originOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// withQuery adds params to target, keeping its existing query.
func withQuery(target string, params url.Values) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// callbackResults are the values the callbacks metric may carry as result.
// Anything else a provider sends is counted as provider_error.
var callbackResults = map[string]bool{
	driving.ReasonInvalidState:      true,
	driving.ReasonMissingCode:       true,
	driving.ReasonForbidden:         true,
	driving.ReasonNotConfigured:     true,
	driving.ReasonExchangeFailed:    true,
	driving.ReasonPersistenceFailed: true,

	// RFC 6749 section 4.1.2.1
	"access_denied":             true,
	"invalid_request":           true,
	"unauthorized_client":       true,
	"unsupported_response_type": true,
	"invalid_scope":             true,
	"server_error":              true,
	"temporarily_unavailable":   true,
}

// callbackResult maps a redirect reason to a bounded metric label.
func callbackResult(reason string) string {
	if callbackResults[reason] {
		return reason
	}
	return reasonProviderError
}

// providerErrorReason reduces a provider error code to a safe reason token.
func providerErrorReason(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
		if b.Len() >= 64 {
			break
		}
	}
	if b.Len() == 0 {
		return reasonProviderError
	}
	return b.String()
}
