package providers

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// shopifyAPIVersion is the Admin API version used for account lookups.
const shopifyAPIVersion = "2024-10"

// ShopifyDefaultScopes are requested unless overridden.
var ShopifyDefaultScopes = []string{"read_products", "write_products", "read_inventory"}

// NewShopify creates a Shopify client. Endpoints are per shop and scopes
// are comma separated.
func NewShopify(opts Options) *Client {
	c := newClient(domain.ProviderTypeShopify, opts, oauth2.Endpoint{}, ShopifyDefaultScopes)
	c.scopeSeparator = ","
	c.endpointFor = shopifyEndpoint("https")
	c.account = shopifyAccount("https")
	return c
}

func shopifyEndpoint(scheme string) func(string) oauth2.Endpoint {
	return func(shop string) oauth2.Endpoint {
		return oauth2.Endpoint{
			AuthURL:   fmt.Sprintf("%s://%s/admin/oauth/authorize", scheme, shop),
			TokenURL:  fmt.Sprintf("%s://%s/admin/oauth/access_token", scheme, shop),
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
}

func shopifyAccount(scheme string) func(context.Context, *Client, *domain.OAuthToken, string) (*domain.AccountInfo, error) {
	return func(ctx context.Context, c *Client, token *domain.OAuthToken, shop string) (*domain.AccountInfo, error) {
		if shop == "" {
			return nil, nil
		}
		var resp struct {
			Shop struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"shop"`
		}
		url := fmt.Sprintf("%s://%s/admin/api/%s/shop.json", scheme, shop, shopifyAPIVersion)
		if err := c.getJSON(ctx, url, map[string]string{
			"X-Shopify-Access-Token": token.AccessToken,
		}, &resp); err != nil {
			return nil, err
		}
		return &domain.AccountInfo{ID: strconv.FormatInt(resp.Shop.ID, 10), Name: resp.Shop.Name}, nil
	}
}
