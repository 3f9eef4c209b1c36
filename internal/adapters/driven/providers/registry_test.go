package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

func TestBuild(t *testing.T) {
	r := Build(Settings{
		Credentials: map[domain.ProviderType]domain.ProviderCredentials{
			domain.ProviderTypeEtsy:     {ClientID: "etsy-id", ClientSecret: "etsy-secret"},
			domain.ProviderTypeLinkedIn: {ClientID: "li-id", ClientSecret: "li-secret"},
			domain.ProviderTypeShopify:  {ClientID: "shop-id"},
		},
		Scopes: map[domain.ProviderType][]string{
			domain.ProviderTypeLinkedIn: {"openid", "w_member_social"},
		},
		PublicBaseURL: "https://connect.madison.test/",
	})

	assert.Equal(t, []domain.ProviderType{domain.ProviderTypeEtsy, domain.ProviderTypeLinkedIn}, r.Configured())

	etsy, err := r.Client(domain.ProviderTypeEtsy)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderTypeEtsy, etsy.Provider())
	assert.Equal(t, "https://connect.madison.test/api/v1/oauth/etsy/callback", etsy.(*Client).config.RedirectURL)

	assert.Equal(t, EtsyDefaultScopes, r.Scopes(domain.ProviderTypeEtsy))
	assert.Equal(t, []string{"openid", "w_member_social"}, r.Scopes(domain.ProviderTypeLinkedIn))
	assert.Nil(t, r.Scopes(domain.ProviderTypeShopify))
}

func TestRegistry_UnconfiguredGuidance(t *testing.T) {
	r := Build(Settings{
		Credentials: map[domain.ProviderType]domain.ProviderCredentials{
			domain.ProviderTypeShopify: {ClientID: "shop-id"},
		},
	})

	_, err := r.Client(domain.ProviderTypeShopify)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"SHOPIFY_CLIENT_SECRET"}, ce.Missing)
	assert.Contains(t, ce.Guidance, "Shopify")

	_, err = r.Client(domain.ProviderTypeGoogleCalendar)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"GOOGLE_CALENDAR_CLIENT_ID", "GOOGLE_CALENDAR_CLIENT_SECRET"}, ce.Missing)
	assert.Contains(t, ce.Guidance, "GOOGLE_CALENDAR_CLIENT_ID and GOOGLE_CALENDAR_CLIENT_SECRET")
}

func TestRegistry_UnknownProvider(t *testing.T) {
	_, err := NewRegistry().Client(domain.ProviderType("myspace"))
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestRegistry_RegisterClearsUnconfigured(t *testing.T) {
	r := NewRegistry()
	r.MarkUnconfigured(domain.ProviderTypeEtsy, []string{"ETSY_CLIENT_ID"})
	r.Register(NewEtsy(Options{ClientID: "id", ClientSecret: "s"}))

	_, err := r.Client(domain.ProviderTypeEtsy)
	assert.NoError(t, err)
}

func TestJoinVars(t *testing.T) {
	assert.Equal(t, "the client credentials", joinVars(nil))
	assert.Equal(t, "A", joinVars([]string{"A"}))
	assert.Equal(t, "A and B", joinVars([]string{"A", "B"}))
	assert.Equal(t, "A, B and C", joinVars([]string{"A", "B", "C"}))
}

func TestCallbackURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/v1/oauth/google_calendar/callback",
		CallbackURL("http://localhost:8080", domain.ProviderTypeGoogleCalendar))
}
