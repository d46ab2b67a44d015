package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spiceportal/internal/platform/config"
	dErrors "spiceportal/pkg/domainerrors"
)

func newTestService(ttl time.Duration) *Service {
	return NewService(config.JWTConfig{
		SigningKey: "test-signing-key",
		Issuer:     "spiceportal-test",
		Audience:   "spiceportal-web",
		TTL:        ttl,
	})
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestService(time.Hour)

	signed, sessionID, err := svc.Issue("user-1", "Administrator", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "Administrator", claims.Role)
	require.Equal(t, sessionID, claims.SessionID)
	require.Equal(t, "spiceportal-test", claims.Issuer)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := newTestService(time.Minute)

	signed, _, err := svc.Issue("user-1", "User", time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsForeignKey(t *testing.T) {
	signed, _, err := newTestService(time.Hour).Issue("user-1", "User", time.Now())
	require.NoError(t, err)

	other := NewService(config.JWTConfig{SigningKey: "different-key", TTL: time.Hour})
	_, err = other.Validate(signed)
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
