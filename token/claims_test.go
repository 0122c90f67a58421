package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/wbcms-session/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.Claims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	raw := signed(t, token.Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{ExpiresAt: jwtlib.NewNumericDate(exp)},
		TokenType:        "access",
		Role:             "student",
	})

	claims, err := token.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "access", claims.TokenType)
	require.Equal(t, "student", claims.Role)
	require.True(t, exp.Equal(token.ExpiresAt(raw)))
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := token.Inspect("not-a-jwt")
	require.Error(t, err)
	require.True(t, token.ExpiresAt("not-a-jwt").IsZero())

	_, err = token.Inspect("  ")
	require.Error(t, err)
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, token.ExpiresWithin(time.Time{}, now, time.Hour))
	require.True(t, token.ExpiresWithin(now, now, 0))
	require.False(t, token.ExpiresWithin(now.Add(time.Minute), now, 0))
	require.True(t, token.ExpiresWithin(now.Add(time.Minute), now, 2*time.Minute))
}
