package providers

import (
	"net/http"
	"strings"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// constructors maps each supported provider to its client constructor.
var constructors = map[domain.ProviderType]func(Options) *Client{
	domain.ProviderTypeEtsy:           NewEtsy,
	domain.ProviderTypeLinkedIn:       NewLinkedIn,
	domain.ProviderTypeGoogleCalendar: NewGoogleCalendar,
	domain.ProviderTypeShopify:        NewShopify,
}

// Settings holds everything needed to build the provider registry.
type Settings struct {
	Credentials map[domain.ProviderType]domain.ProviderCredentials

	// Scopes overrides default scopes per provider.
	Scopes map[domain.ProviderType][]string

	// PublicBaseURL is the externally reachable base URL of this service,
	// used to build callback URLs.
	PublicBaseURL string

	HTTPClient *http.Client
}

// CallbackURL returns the redirect URI registered with a provider.
func CallbackURL(publicBaseURL string, provider domain.ProviderType) string {
	return strings.TrimRight(publicBaseURL, "/") + "/api/v1/oauth/" + string(provider) + "/callback"
}

// Build creates a registry with a client for every configured provider.
// Providers missing credentials are marked unconfigured.
func Build(s Settings) *Registry {
	r := NewRegistry()
	for _, p := range domain.SupportedProviders() {
		creds := s.Credentials[p]
		if !creds.IsConfigured() {
			r.MarkUnconfigured(p, creds.MissingVars(p))
			continue
		}
		r.Register(constructors[p](Options{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  CallbackURL(s.PublicBaseURL, p),
			HTTPClient:   s.HTTPClient,
		}))
		if scopes := s.Scopes[p]; len(scopes) > 0 {
			r.SetScopes(p, scopes)
		}
	}
	return r
}
