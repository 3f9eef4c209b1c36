package domain

import (
	"testing"
	"time"
)

func TestConnection_NeedsRefreshAndIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	soon := time.Now().Add(2 * time.Minute)
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name         string
		expiresAt    *time.Time
		needsRefresh bool
		expired      bool
	}{
		{"no expiry", nil, false, false},
		{"expired", &past, true, true},
		{"inside window", &soon, true, false},
		{"valid", &later, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Connection{ExpiresAt: tt.expiresAt}
			if got := c.NeedsRefresh(); got != tt.needsRefresh {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.needsRefresh)
			}
			if got := c.IsExpired(); got != tt.expired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestConnection_ToSummary(t *testing.T) {
	now := time.Now()
	c := &Connection{
		ID:             "conn-1",
		OrganizationID: "org-1",
		Provider:       ProviderTypeShopify,
		AccessToken:    EncryptedValue{Ciphertext: []byte("ct"), IV: []byte("iv")},
		RefreshToken:   &EncryptedValue{Ciphertext: []byte("rt"), IV: []byte("iv")},
		Scopes:         []string{"read_products"},
		AccountName:    "My Store",
		ShopDomain:     "my-store.myshopify.com",
		Status:         ConnectionStatusIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s := c.ToSummary()
	if s.ID != "conn-1" || s.Provider != ProviderTypeShopify {
		t.Errorf("unexpected summary %+v", s)
	}
	if !s.HasRefreshToken {
		t.Error("expected HasRefreshToken")
	}
	if s.ShopDomain != "my-store.myshopify.com" {
		t.Errorf("expected shop domain, got %s", s.ShopDomain)
	}

	c.RefreshToken = &EncryptedValue{}
	if c.ToSummary().HasRefreshToken {
		t.Error("expected empty refresh token to count as absent")
	}
	c.RefreshToken = nil
	if c.HasRefreshToken() {
		t.Error("expected nil refresh token to count as absent")
	}
}
