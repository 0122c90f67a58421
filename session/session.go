// Package session owns the authenticated identity of the current user and
// its durable mirror.
package session

import (
	"time"

	"github.com/jrsteele09/wbcms-session/internal/utils"
	"github.com/jrsteele09/wbcms-session/token"
	"github.com/jrsteele09/wbcms-session/users"
	"golang.org/x/oauth2"
)

// Session is the authenticated identity and credential pair for the current user.
type Session struct {
	AccessToken        string
	RefreshToken       string
	UserID             string
	Email              string
	Role               users.Role
	HasProfile         bool
	RegistrationNumber *string
	StudentNumber      *string
	ProgrammeID        *int
}

// Unauthenticated is the logged-out default.
func Unauthenticated() Session {
	return Session{}
}

// IsLoggedIn is true if and only if both tokens are present.
func (s Session) IsLoggedIn() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Username is the local part of the email.
func (s Session) Username() string {
	return users.Username(s.Email)
}

// AccessExpiry is the exp claim of the access token, zero when unknown.
func (s Session) AccessExpiry() time.Time {
	return token.ExpiresAt(s.AccessToken)
}

// OAuth2Token converts the credential pair to an oauth2.Token.
func (s Session) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.AccessExpiry(),
	}
}

// clone copies the optional fields so callers cannot mutate the store's copy.
func (s Session) clone() Session {
	s.RegistrationNumber = utils.Clone(s.RegistrationNumber)
	s.StudentNumber = utils.Clone(s.StudentNumber)
	s.ProgrammeID = utils.Clone(s.ProgrammeID)
	return s
}
