package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ProviderType identifies a third-party account provider
type ProviderType string

const (
	// Marketplaces
	ProviderTypeEtsy    ProviderType = "etsy"
	ProviderTypeShopify ProviderType = "shopify"

	// Social
	ProviderTypeLinkedIn ProviderType = "linkedin"

	// Scheduling
	ProviderTypeGoogleCalendar ProviderType = "google_calendar"
)

// SupportedProviders returns every provider a connection can be made to.
func SupportedProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeEtsy,
		ProviderTypeShopify,
		ProviderTypeLinkedIn,
		ProviderTypeGoogleCalendar,
	}
}

// ParseProviderType maps a URL path segment to a ProviderType.
// Hyphenated forms ("google-calendar") are accepted.
func ParseProviderType(s string) (ProviderType, error) {
	pt := ProviderType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, p := range SupportedProviders() {
		if p == pt {
			return pt, nil
		}
	}
	return "", ErrUnknownProvider
}

// DisplayName returns a human-readable name for the provider.
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderTypeEtsy:
		return "Etsy"
	case ProviderTypeShopify:
		return "Shopify"
	case ProviderTypeLinkedIn:
		return "LinkedIn"
	case ProviderTypeGoogleCalendar:
		return "Google Calendar"
	default:
		return string(p)
	}
}

// EnvPrefix returns the environment variable prefix for the provider's
// client credentials, e.g. "GOOGLE_CALENDAR" for GOOGLE_CALENDAR_CLIENT_ID.
func (p ProviderType) EnvPrefix() string {
	return strings.ToUpper(string(p))
}

// ProviderCredentials holds the OAuth application credentials for a provider.
type ProviderCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"` // Never serialize
}

// IsConfigured returns true when both client id and secret are present.
func (c ProviderCredentials) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// MissingVars lists the environment variables that must be set for the provider.
func (c ProviderCredentials) MissingVars(p ProviderType) []string {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, p.EnvPrefix()+"_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, p.EnvPrefix()+"_CLIENT_SECRET")
	}
	return missing
}

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShopDomain lowercases a Shopify shop domain, strips any scheme
// or path, and checks it is a *.myshopify.com host. A bare shop name
// ("my-store") is expanded to "my-store.myshopify.com".
func NormalizeShopDomain(shop string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if s != "" && !strings.Contains(s, ".") {
		s += ".myshopify.com"
	}
	if !shopDomainPattern.MatchString(s) {
		return "", fmt.Errorf("%w: shop domain must be a *.myshopify.com host", ErrInvalidInput)
	}
	return s, nil
}
