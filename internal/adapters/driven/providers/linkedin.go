package providers

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// LinkedIn OAuth endpoints
const (
	linkedInAuthURL     = "https://www.linkedin.com/oauth/v2/authorization"
	linkedInTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedInUserInfoURL = "https://api.linkedin.com/v2/userinfo"
)

// LinkedInDefaultScopes are requested unless overridden.
var LinkedInDefaultScopes = []string{"openid", "profile", "email", "w_member_social"}

// NewLinkedIn creates a LinkedIn client.
func NewLinkedIn(opts Options) *Client {
	c := newClient(domain.ProviderTypeLinkedIn, opts, oauth2.Endpoint{
		AuthURL:   linkedInAuthURL,
		TokenURL:  linkedInTokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}, LinkedInDefaultScopes)
	c.account = linkedInAccount(linkedInUserInfoURL)
	return c
}

func linkedInAccount(url string) func(context.Context, *Client, *domain.OAuthToken, string) (*domain.AccountInfo, error) {
	return func(ctx context.Context, c *Client, token *domain.OAuthToken, _ string) (*domain.AccountInfo, error) {
		var user struct {
			Sub   string `json:"sub"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := c.getJSON(ctx, url, map[string]string{
			"Authorization": "Bearer " + token.AccessToken,
		}, &user); err != nil {
			return nil, err
		}

		name := user.Name
		if name == "" {
			name = user.Email
		}
		return &domain.AccountInfo{ID: user.Sub, Name: name}, nil
	}
}
