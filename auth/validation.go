package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/users"
)

// PasswordSymbols are the characters that satisfy the symbol rule.
const PasswordSymbols = "!@#$%^&*"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Password policy messages, in the order they are reported.
const (
	PasswordTooShortMsg   = "Password must be at least 8 characters long"
	PasswordNoUpperMsg    = "Password must contain at least one uppercase letter"
	PasswordNoLowerMsg    = "Password must contain at least one lowercase letter"
	PasswordNoDigitMsg    = "Password must contain at least one number"
	PasswordNoSymbolMsg   = "Password must contain at least one special character (!@#$%^&*)"
	PasswordRequiredMsg   = "Password is required"
	PasswordsDontMatchMsg = "Passwords do not match"
	EmailRequiredMsg      = "Email is required"
	ResetTokenRequiredMsg = "Reset token is required"
)

// ValidationError lists every local policy rule a request broke. Nothing is
// sent to the server when one is returned.
type ValidationError struct {
	Violations []string
}

var _ error = (*ValidationError)(nil)

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ". ")
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrValidation
}

// Validator applies the local password and email policies.
type Validator struct {
	allowedDomains []string
}

// NewValidator creates a Validator accepting registrations from domains.
// With no domains any email domain is accepted.
func NewValidator(domains ...string) *Validator {
	v := &Validator{}
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			v.allowedDomains = append(v.allowedDomains, d)
		}
	}
	return v
}

// PasswordViolations returns every password rule pw breaks, in policy order.
func (v *Validator) PasswordViolations(pw string) []string {
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		violations = append(violations, PasswordTooShortMsg)
	}
	if !upper {
		violations = append(violations, PasswordNoUpperMsg)
	}
	if !lower {
		violations = append(violations, PasswordNoLowerMsg)
	}
	if !digit {
		violations = append(violations, PasswordNoDigitMsg)
	}
	if !symbol {
		violations = append(violations, PasswordNoSymbolMsg)
	}
	return violations
}

// EmailViolation returns the email rule email breaks, or "".
func (v *Validator) EmailViolation(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return EmailRequiredMsg
	}
	if len(v.allowedDomains) == 0 {
		return ""
	}
	domain := users.EmailDomain(email)
	for _, allowed := range v.allowedDomains {
		if domain == allowed {
			return ""
		}
	}
	return v.domainMessage()
}

func (v *Validator) domainMessage() string {
	switch len(v.allowedDomains) {
	case 1:
		return "Email must be from " + v.allowedDomains[0]
	default:
		last := len(v.allowedDomains) - 1
		return "Email must be from " + strings.Join(v.allowedDomains[:last], ", ") + " or " + v.allowedDomains[last]
	}
}

// ValidateCredentials checks a sign-in request has both fields.
func (v *Validator) ValidateCredentials(c Credentials) error {
	var violations []string
	if strings.TrimSpace(c.Email) == "" {
		violations = append(violations, EmailRequiredMsg)
	}
	if c.Password == "" {
		violations = append(violations, PasswordRequiredMsg)
	}
	return asError(violations)
}

// ValidateRegistration applies the email and password policies to r.
func (v *Validator) ValidateRegistration(r Registration) error {
	var violations []string
	if msg := v.EmailViolation(r.Email); msg != "" {
		violations = append(violations, msg)
	}
	violations = append(violations, v.PasswordViolations(r.Password)...)
	if r.ConfirmPassword != nil && *r.ConfirmPassword != r.Password {
		violations = append(violations, PasswordsDontMatchMsg)
	}
	return asError(violations)
}

// ValidateReset applies the password policy to a reset request.
func (v *Validator) ValidateReset(r ResetRequest) error {
	var violations []string
	if strings.TrimSpace(r.Token) == "" {
		violations = append(violations, ResetTokenRequiredMsg)
	}
	violations = append(violations, v.PasswordViolations(r.Password)...)
	if r.ConfirmPassword != nil && *r.ConfirmPassword != r.Password {
		violations = append(violations, PasswordsDontMatchMsg)
	}
	return asError(violations)
}

// ValidateEmail checks a forgot-password request.
func (v *Validator) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return asError([]string{EmailRequiredMsg})
	}
	return nil
}

func asError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
