package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

func testOptions(srv *httptest.Server) Options {
	return Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://connect.madison.test/api/v1/oauth/etsy/callback",
		HTTPClient:   srv.Client(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// tokenServer answers the token endpoint and records the last form posted.
func tokenServer(t *testing.T, handle func(w http.ResponseWriter, form url.Values)) (*httptest.Server, *url.Values) {
	t.Helper()
	var last url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		last = r.PostForm
		handle(w, r.PostForm)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestAuthCodeURL_EtsyPKCE(t *testing.T) {
	c := NewEtsy(Options{ClientID: "etsy-key", ClientSecret: "s", RedirectURL: "https://connect.madison.test/cb"})

	// RFC 7636 appendix B
	raw, err := c.AuthCodeURL(driven.AuthCodeRequest{
		State:        "state-1",
		CodeVerifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "www.etsy.com", u.Host)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "etsy-key", q.Get("client_id"))
	assert.Equal(t, "https://connect.madison.test/cb", q.Get("redirect_uri"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", q.Get("code_challenge"))
	assert.NotContains(t, raw, "dBjftJeZ4CVP")
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, strings.Join(EtsyDefaultScopes, " "), q.Get("scope"))
	assert.True(t, c.UsesPKCE())
}

func TestAuthCodeURL_Validation(t *testing.T) {
	etsy := NewEtsy(Options{ClientID: "id", ClientSecret: "s"})

	_, err := etsy.AuthCodeURL(driven.AuthCodeRequest{CodeVerifier: "v"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "missing state")

	_, err = etsy.AuthCodeURL(driven.AuthCodeRequest{State: "s"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "etsy without verifier")

	shopify := NewShopify(Options{ClientID: "id", ClientSecret: "s"})
	_, err = shopify.AuthCodeURL(driven.AuthCodeRequest{State: "s"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "shopify without shop")
}

func TestAuthCodeURL_GoogleOffline(t *testing.T) {
	c := NewGoogleCalendar(Options{ClientID: "gid", ClientSecret: "s"})

	raw, err := c.AuthCodeURL(driven.AuthCodeRequest{State: "st", CodeVerifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", q.Get("code_challenge"))
	assert.False(t, c.UsesPKCE())
}

func TestAuthCodeURL_ShopifyScopes(t *testing.T) {
	c := NewShopify(Options{ClientID: "sid", ClientSecret: "s"})

	raw, err := c.AuthCodeURL(driven.AuthCodeRequest{
		State:      "st",
		ShopDomain: "madison-goods.myshopify.com",
		Scopes:     []string{"read_products", "write_products"},
	})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "madison-goods.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	assert.Equal(t, "read_products,write_products", u.Query().Get("scope"))
	assert.Empty(t, u.Query().Get("code_challenge"))
}

func TestExchange_SendsVerifierAndCredentials(t *testing.T) {
	srv, form := tokenServer(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "listings_r shops_r",
		})
	})

	c := NewEtsy(testOptions(srv))
	c.config.Endpoint.TokenURL = srv.URL + "/token"

	tok, err := c.Exchange(context.Background(), driven.ExchangeRequest{Code: "code-1", CodeVerifier: "verifier-1"})
	require.NoError(t, err)

	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.Equal(t, []string{"listings_r", "shops_r"}, tok.Scopes)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "code-1", form.Get("code"))
	assert.Equal(t, "verifier-1", form.Get("code_verifier"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))
}

func TestExchange_ErrorIsSanitized(t *testing.T) {
	srv, _ := tokenServer(t, func(w http.ResponseWriter, form url.Values) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "code expired",
			"echo":              form.Get("client_secret"),
		})
	})

	c := NewLinkedIn(testOptions(srv))
	c.config.Endpoint.TokenURL = srv.URL

	_, err := c.Exchange(context.Background(), driven.ExchangeRequest{Code: "code-1"})
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrProviderExchange)
	var pe *domain.ProviderExchangeError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, domain.ProviderTypeLinkedIn, pe.Provider)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.NotContains(t, err.Error(), "client-secret")
}

func TestExchange_MissingCode(t *testing.T) {
	c := NewLinkedIn(Options{ClientID: "id", ClientSecret: "s"})
	_, err := c.Exchange(context.Background(), driven.ExchangeRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRefresh(t *testing.T) {
	t.Run("rotated refresh token", func(t *testing.T) {
		srv, form := tokenServer(t, func(w http.ResponseWriter, _ url.Values) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "at-2",
				"refresh_token": "rt-2",
				"expires_in":    3600,
			})
		})
		c := NewGoogleCalendar(testOptions(srv))
		c.config.Endpoint.TokenURL = srv.URL

		tok, err := c.Refresh(context.Background(), "rt-1", "")
		require.NoError(t, err)
		assert.Equal(t, "at-2", tok.AccessToken)
		assert.Equal(t, "rt-2", tok.RefreshToken)
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "rt-1", form.Get("refresh_token"))
	})

	t.Run("refresh token kept when not rotated", func(t *testing.T) {
		srv, _ := tokenServer(t, func(w http.ResponseWriter, _ url.Values) {
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "at-3", "expires_in": 60})
		})
		c := NewGoogleCalendar(testOptions(srv))
		c.config.Endpoint.TokenURL = srv.URL

		tok, err := c.Refresh(context.Background(), "rt-1", "")
		require.NoError(t, err)
		assert.Equal(t, "at-3", tok.AccessToken)
		assert.Equal(t, "rt-1", tok.RefreshToken)
	})

	t.Run("provider rejects", func(t *testing.T) {
		srv, _ := tokenServer(t, func(w http.ResponseWriter, _ url.Values) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		c := NewGoogleCalendar(testOptions(srv))
		c.config.Endpoint.TokenURL = srv.URL

		_, err := c.Refresh(context.Background(), "rt-1", "")
		assert.ErrorIs(t, err, domain.ErrProviderExchange)
	})

	t.Run("no refresh token", func(t *testing.T) {
		c := NewGoogleCalendar(Options{ClientID: "id", ClientSecret: "s"})
		_, err := c.Refresh(context.Background(), "", "")
		assert.ErrorIs(t, err, domain.ErrNoRefreshToken)
	})
}

func TestShopify_ExchangeAndAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "shop-code" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "shpat_123",
			"scope":        "read_products,write_products",
		})
	})
	mux.HandleFunc("/admin/api/"+shopifyAPIVersion+"/shop.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Shopify-Access-Token") != "shpat_123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"shop": map[string]any{"id": 42, "name": "Madison Goods"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewShopify(testOptions(srv))
	c.endpointFor = shopifyEndpoint("http")
	c.account = shopifyAccount("http")
	shop := strings.TrimPrefix(srv.URL, "http://")

	tok, err := c.Exchange(context.Background(), driven.ExchangeRequest{Code: "shop-code", ShopDomain: shop})
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)
	assert.True(t, tok.Expiry.IsZero())
	assert.Equal(t, []string{"read_products", "write_products"}, tok.Scopes)

	info, err := c.AccountInfo(context.Background(), tok, shop)
	require.NoError(t, err)
	assert.Equal(t, &domain.AccountInfo{ID: "42", Name: "Madison Goods"}, info)
}

func TestEtsyAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "client-id", r.Header.Get("x-api-key"))
		writeJSON(w, http.StatusOK, map[string]any{"user_id": 7, "shop_id": 99})
	}))
	t.Cleanup(srv.Close)

	c := NewEtsy(testOptions(srv))
	c.account = etsyAccount(srv.URL)

	info, err := c.AccountInfo(context.Background(), &domain.OAuthToken{AccessToken: "at-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "99", info.ID)
	assert.Equal(t, "Etsy shop 99", info.Name)
}

func TestLinkedInAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sub": "li-abc", "email": "me@madison.test"})
	}))
	t.Cleanup(srv.Close)

	c := NewLinkedIn(testOptions(srv))
	c.account = linkedInAccount(srv.URL)

	info, err := c.AccountInfo(context.Background(), &domain.OAuthToken{AccessToken: "at"}, "")
	require.NoError(t, err)
	assert.Equal(t, "li-abc", info.ID)
	assert.Equal(t, "me@madison.test", info.Name)
}

func TestGoogleCalendarAccount_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewGoogleCalendar(testOptions(srv))
	c.account = googleCalendarAccount(srv.URL)

	_, err := c.AccountInfo(context.Background(), &domain.OAuthToken{AccessToken: "at"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSanitize(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	assert.Equal(t, plain, sanitize(plain))

	withCode := &oauth2.RetrieveError{ErrorCode: "invalid_client", ErrorDescription: "bad secret", Body: []byte("raw")}
	assert.Equal(t, "invalid_client: bad secret", sanitize(withCode).Error())

	withStatus := &oauth2.RetrieveError{Response: &http.Response{StatusCode: 503}, Body: []byte("raw")}
	assert.Equal(t, "token endpoint returned status 503", sanitize(withStatus).Error())
}
