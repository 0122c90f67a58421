package auth

import "github.com/jrsteele09/wbcms-session/internal/errors"

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.ErrValidation

// Messages used when the backend gives no usable one.
const (
	SignInFailedMsg         = "Login failed"
	SignUpFailedMsg         = "Signup failed"
	ForgotPasswordFailedMsg = "Failed to send reset instructions"
	ResetPasswordFailedMsg  = "Failed to reset password"
)

// Success messages.
const (
	// ForgotPasswordSentMsg is reported for every accepted forgot-password
	// request so the response never reveals whether an account exists.
	ForgotPasswordSentMsg = "If an account exists with this email, you will receive password reset instructions."
	ResetPasswordDoneMsg  = "Password has been reset successfully. Please login with your new password."
	SignUpDoneMsg         = "Account created successfully. Please login."
)

var fallbackMessages = map[Kind]string{
	KindSignIn:         SignInFailedMsg,
	KindSignUp:         SignUpFailedMsg,
	KindForgotPassword: ForgotPasswordFailedMsg,
	KindResetPassword:  ResetPasswordFailedMsg,
}
