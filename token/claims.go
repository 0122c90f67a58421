// Package token reads the claims of the backend's access tokens.
//
// The client never holds the signing key, so tokens are decoded without
// verification. The result is only used to schedule renewal; the server
// stays the authority on whether a token is valid.
package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of an access token the client cares about.
type Claims struct {
	jwtlib.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
	UserID    any    `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("[Inspect] empty token")
	}
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("[Inspect] %w", err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of raw, or the zero time when the token is
// opaque or carries no exp.
func ExpiresAt(raw string) time.Time {
	claims, err := Inspect(raw)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// ExpiresWithin reports whether a token expiring at exp is expired at now+skew.
// An unknown expiry is never considered expired.
func ExpiresWithin(exp, now time.Time, skew time.Duration) bool {
	if exp.IsZero() {
		return false
	}
	return !now.Add(skew).Before(exp)
}
