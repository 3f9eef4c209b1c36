package providers

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

// Google OAuth endpoints
const (
	googleAuthURL            = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL           = "https://oauth2.googleapis.com/token"
	googlePrimaryCalendarURL = "https://www.googleapis.com/calendar/v3/calendars/primary"
)

// GoogleCalendarDefaultScopes are requested unless overridden.
var GoogleCalendarDefaultScopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// NewGoogleCalendar creates a Google Calendar client.
// Offline access with forced consent makes Google issue a refresh token
// on every connect, including reconnects.
func NewGoogleCalendar(opts Options) *Client {
	c := newClient(domain.ProviderTypeGoogleCalendar, opts, oauth2.Endpoint{
		AuthURL:   googleAuthURL,
		TokenURL:  googleTokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}, GoogleCalendarDefaultScopes)
	c.authParams = []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}
	c.account = googleCalendarAccount(googlePrimaryCalendarURL)
	return c
}

// The primary calendar id is the account email.
func googleCalendarAccount(url string) func(context.Context, *Client, *domain.OAuthToken, string) (*domain.AccountInfo, error) {
	return func(ctx context.Context, c *Client, token *domain.OAuthToken, _ string) (*domain.AccountInfo, error) {
		var cal struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
		}
		if err := c.getJSON(ctx, url, map[string]string{
			"Authorization": "Bearer " + token.AccessToken,
		}, &cal); err != nil {
			return nil, err
		}

		name := cal.Summary
		if name == "" {
			name = cal.ID
		}
		return &domain.AccountInfo{ID: cal.ID, Name: name}, nil
	}
}
