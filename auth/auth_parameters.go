package auth

import (
	"strings"

	"github.com/jrsteele09/wbcms-session/apimodel"
)

// Kind identifies one of the authentication actions the Machine tracks.
// Each kind has its own independent RequestState.
type Kind string

const (
	// KindSignIn exchanges email and password for a session.
	// Endpoint: POST /login/ with {"email", "password"}
	// Returns: {"access", "refresh", "user": {...}}
	KindSignIn Kind = "sign-in"

	// KindSignUp registers an account.
	// Endpoint: POST /signup/ with {"email", "password"}
	// Returns: {"message", "user"}. Registration never establishes a session
	// on its own; a sign-in must follow.
	KindSignUp Kind = "sign-up"

	// KindForgotPassword asks the backend to mail a reset link.
	// Endpoint: POST /forgot-password/ with {"email"}
	// The outcome shown to the user is the same whether or not the email is
	// registered.
	KindForgotPassword Kind = "forgot-password"

	// KindResetPassword sets a new password using the token from the reset link.
	// Endpoint: POST /reset-password/{token}/ with {"password"}
	// Errors: invalid, expired or already used token (400).
	KindResetPassword Kind = "reset-password"
)

// Kinds lists every action kind.
var Kinds = []Kind{KindSignIn, KindSignUp, KindForgotPassword, KindResetPassword}

// Credentials are the sign-in parameters.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) wire() apimodel.Credentials {
	return apimodel.Credentials{Email: strings.TrimSpace(c.Email), Password: c.Password}
}

// Registration are the sign-up parameters. ConfirmPassword is checked only
// when set.
type Registration struct {
	Email           string
	Password        string
	ConfirmPassword *string
}

func (r Registration) credentials() Credentials {
	return Credentials{Email: r.Email, Password: r.Password}
}

// ResetRequest are the reset-password parameters. Token comes from the reset
// link; ConfirmPassword is checked only when set.
type ResetRequest struct {
	Token           string
	Password        string
	ConfirmPassword *string
}
