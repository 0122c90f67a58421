package users

import "strings"

// Role is the account role issued by the backend.
type Role string

const (
	RoleStudent   Role = "student"
	RoleLecturer  Role = "lecturer"
	RoleRegistrar Role = "registrar"
)

// Roles lists the known roles.
var Roles = []Role{RoleStudent, RoleLecturer, RoleRegistrar}

// ParseRole normalizes a role string. Unknown roles are returned as-is so the
// caller can decide how to treat them.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether r is one of the enumerated roles.
func (r Role) Known() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ProfileUpdate carries the profile fields a user completes after first sign-in.
// Nil fields leave the current value untouched.
type ProfileUpdate struct {
	RegistrationNumber *string `json:"registration_number,omitempty"`
	StudentNumber      *string `json:"student_number,omitempty"`
	ProgrammeID        *int    `json:"programme,omitempty"`
}

// Username derives the display name the UI uses: the local part of the email.
func Username(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// EmailDomain returns the lower-cased domain part of an email, or "" if there is none.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
