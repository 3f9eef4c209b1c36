package providers

import (
	"context"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// Etsy OAuth endpoints
const (
	etsyAuthURL  = "https://www.etsy.com/oauth/connect"
	etsyTokenURL = "https://api.etsy.com/v3/public/oauth/token"
	etsyMeURL    = "https://openapi.etsy.com/v3/application/users/me"
)

// EtsyDefaultScopes are requested unless overridden.
var EtsyDefaultScopes = []string{"listings_r", "listings_w", "shops_r", "transactions_r"}

// NewEtsy creates an Etsy client. Etsy requires PKCE and identifies the
// application with an x-api-key header on API calls.
func NewEtsy(opts Options) *Client {
	c := newClient(domain.ProviderTypeEtsy, opts, oauth2.Endpoint{
		AuthURL:   etsyAuthURL,
		TokenURL:  etsyTokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}, EtsyDefaultScopes)
	c.pkce = true
	c.account = etsyAccount(etsyMeURL)
	return c
}

func etsyAccount(url string) func(context.Context, *Client, *domain.OAuthToken, string) (*domain.AccountInfo, error) {
	return func(ctx context.Context, c *Client, token *domain.OAuthToken, _ string) (*domain.AccountInfo, error) {
		var me struct {
			UserID int64 `json:"user_id"`
			ShopID int64 `json:"shop_id"`
		}
		err := c.getJSON(ctx, url, map[string]string{
			"Authorization": "Bearer " + token.AccessToken,
			"x-api-key":     c.config.ClientID,
		}, &me)
		if err != nil {
			return nil, err
		}

		info := &domain.AccountInfo{ID: strconv.FormatInt(me.UserID, 10)}
		if me.ShopID != 0 {
			info.ID = strconv.FormatInt(me.ShopID, 10)
			info.Name = "Etsy shop " + info.ID
		}
		return info, nil
	}
}
