package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProviderClient = (*Client)(nil)

// maxResponseBody bounds provider API responses read into memory.
const maxResponseBody = 1 << 20

// Options configures a provider client.
type Options struct {
	ClientID     string
	ClientSecret string

	// RedirectURL is the callback URL registered with the provider.
	RedirectURL string

	// HTTPClient is used for token and account calls. Defaults to a client
	// with a 30 second timeout.
	HTTPClient *http.Client
}

// Client is an OAuth 2.0 client for one provider built on golang.org/x/oauth2.
// Provider differences are captured by the fields set in each constructor.
type Client struct {
	provider domain.ProviderType
	config   oauth2.Config
	pkce     bool
	scopes   []string

	// scopeSeparator is used when the provider does not accept space separated scopes.
	scopeSeparator string

	// authParams are extra query parameters added to the authorization URL.
	authParams []oauth2.AuthCodeOption

	// endpointFor returns a per-shop endpoint (Shopify). Nil for static endpoints.
	endpointFor func(shopDomain string) oauth2.Endpoint

	// account fetches the connected account. Nil disables the lookup.
	account func(ctx context.Context, c *Client, token *domain.OAuthToken, shopDomain string) (*domain.AccountInfo, error)

	httpClient *http.Client
}

func newClient(provider domain.ProviderType, opts Options, endpoint oauth2.Endpoint, scopes []string) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		provider: provider,
		config: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Endpoint:     endpoint,
		},
		scopes:     scopes,
		httpClient: httpClient,
	}
}

// Provider returns the provider type.
func (c *Client) Provider() domain.ProviderType {
	return c.provider
}

// UsesPKCE reports whether the provider requires PKCE.
func (c *Client) UsesPKCE() bool {
	return c.pkce
}

// DefaultScopes returns the scopes requested when none are configured.
func (c *Client) DefaultScopes() []string {
	return append([]string(nil), c.scopes...)
}

// AuthCodeURL builds the provider authorization URL.
func (c *Client) AuthCodeURL(req driven.AuthCodeRequest) (string, error) {
	if req.State == "" {
		return "", fmt.Errorf("%w: state is required", domain.ErrInvalidInput)
	}
	if c.pkce && req.CodeVerifier == "" {
		return "", fmt.Errorf("%w: %s requires a PKCE code verifier", domain.ErrInvalidInput, c.provider)
	}

	cfg, err := c.configFor(req.ShopDomain)
	if err != nil {
		return "", err
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = c.scopes
	}

	opts := append([]oauth2.AuthCodeOption(nil), c.authParams...)
	if c.scopeSeparator != "" {
		cfg.Scopes = nil
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(scopes, c.scopeSeparator)))
	} else {
		cfg.Scopes = scopes
	}
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(req.CodeVerifier))
	}

	return cfg.AuthCodeURL(req.State, opts...), nil
}

// Exchange exchanges an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, req driven.ExchangeRequest) (*domain.OAuthToken, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", domain.ErrInvalidInput)
	}
	cfg, err := c.configFor(req.ShopDomain)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	tok, err := cfg.Exchange(c.oauthContext(ctx), req.Code, opts...)
	if err != nil {
		return nil, &domain.ProviderExchangeError{Provider: c.provider, Err: sanitize(err)}
	}
	return toDomainToken(tok), nil
}

// Refresh obtains a new token set from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken, shopDomain string) (*domain.OAuthToken, error) {
	if refreshToken == "" {
		return nil, domain.ErrNoRefreshToken
	}
	cfg, err := c.configFor(shopDomain)
	if err != nil {
		return nil, err
	}

	// An empty access token forces the token source to refresh.
	src := cfg.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &domain.ProviderExchangeError{Provider: c.provider, Err: sanitize(err)}
	}
	return toDomainToken(tok), nil
}

// AccountInfo fetches the connected account. Returns nil, nil when the
// provider has no account endpoint.
func (c *Client) AccountInfo(ctx context.Context, token *domain.OAuthToken, shopDomain string) (*domain.AccountInfo, error) {
	if c.account == nil || token == nil {
		return nil, nil
	}
	return c.account(ctx, c, token, shopDomain)
}

func (c *Client) configFor(shopDomain string) (oauth2.Config, error) {
	cfg := c.config
	if c.endpointFor != nil {
		if shopDomain == "" {
			return cfg, fmt.Errorf("%w: %s requires a shop domain", domain.ErrInvalidInput, c.provider)
		}
		cfg.Endpoint = c.endpointFor(shopDomain)
	}
	return cfg, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s account request: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s account request failed with status %d", c.provider, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func toDomainToken(tok *oauth2.Token) *domain.OAuthToken {
	out := &domain.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scopes = domain.SplitScopes(scope)
	}
	return out
}

// sanitize strips the raw response body from token endpoint errors.
// The body can echo back codes or tokens.
func sanitize(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode != "" {
			return fmt.Errorf("%s: %s", re.ErrorCode, re.ErrorDescription)
		}
		if re.Response != nil {
			return fmt.Errorf("token endpoint returned status %d", re.Response.StatusCode)
		}
		return errors.New("token endpoint rejected the request")
	}
	return err
}
