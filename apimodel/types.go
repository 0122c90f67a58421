// Package apimodel holds the wire shapes exchanged with the complaints backend.
package apimodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Credentials is the sign-in request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the identity block returned by the login endpoint.
// The backend is loose with types, hence the Flex wrappers.
type User struct {
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	UserID             FlexString `json:"user_id"`
	RegistrationNumber *string    `json:"registration_number"`
	StudentNumber      *string    `json:"student_number"`
	Programme          *FlexInt   `json:"programme"`
	HasProfile         FlexBool   `json:"has_profile"`
}

// SignInResponse is the login endpoint response.
type SignInResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// Complete reports whether the response carries everything needed to build a session.
func (r *SignInResponse) Complete() bool {
	return r != nil && r.Access != "" && r.Refresh != "" && r.User != nil && r.User.Email != ""
}

// SignUpResponse is the registration endpoint response. Tokens, when the
// backend happens to include them, are kept for inspection but never trusted.
type SignUpResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
}

// RefreshRequest is the token-refresh request body.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is the token-refresh response body.
type RefreshResponse struct {
	Access string `json:"access"`
}

// ForgotPasswordRequest is the forgot-password request body.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the reset-password request body; the token travels in the path.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// MessageResponse is the body of the password endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// FlexBool decodes JSON booleans as well as the strings "true" and "false".
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("flexbool: %q is not a boolean", s)
		}
		*b = FlexBool(v)
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("flexbool: %w", err)
	}
	*b = FlexBool(v)
	return nil
}

// FlexString decodes JSON strings and numbers into a string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("flexstring: %w", err)
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexstring: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

// FlexInt decodes JSON numbers and numeric strings into an int.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("flexint: %w", err)
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("flexint: %q is not an integer", data)
	}
	*i = FlexInt(v)
	return nil
}

// IntPtr converts an optional FlexInt.
func (i *FlexInt) IntPtr() *int {
	if i == nil {
		return nil
	}
	v := int(*i)
	return &v
}

// AcademicYear is one entry of the academic years listing.
type AcademicYear struct {
	ID      FlexString `json:"id"`
	Title   string     `json:"title"`
	Created string     `json:"created,omitempty"`
}

// AcademicYearRequest creates an academic year titled "YYYY/YYYY".
type AcademicYearRequest struct {
	Title string `json:"title"`
}
