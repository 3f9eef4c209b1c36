package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven/mocks"
)

func TestAuthService_ValidateToken(t *testing.T) {
	adapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(adapter)

	valid, err := adapter.Token(&domain.TokenClaims{
		Subject:   "user-123",
		Email:     "maker@madison.test",
		SessionID: "sess-1",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	expired, err := adapter.Token(&domain.TokenClaims{
		Subject:   "user-123",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	noSubject, err := adapter.Token(&domain.TokenClaims{
		Email:     "anon@madison.test",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid token", token: valid},
		{name: "empty token", token: "", wantErr: domain.ErrTokenInvalid},
		{name: "garbage token", token: "not-a-token", wantErr: domain.ErrTokenInvalid},
		{name: "expired token", token: expired, wantErr: domain.ErrTokenExpired},
		{name: "missing subject", token: noSubject, wantErr: domain.ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authCtx, err := svc.ValidateToken(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, authCtx)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-123", authCtx.UserID)
			assert.Equal(t, "maker@madison.test", authCtx.Email)
			assert.Equal(t, "sess-1", authCtx.SessionID)
		})
	}
}
