package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/users"
)

const recordVersion = 1

// record is the persisted mirror of Session. The layout follows the web
// client's stored "user" object so both can read the same data.
type record struct {
	Version            int          `json:"version"`
	IsLoggedIn         bool         `json:"isLoggedIn"`
	Username           string       `json:"username,omitempty"`
	Email              string       `json:"email"`
	Role               string       `json:"role"`
	UserID             string       `json:"user_id"`
	HasProfile         bool         `json:"has_profile"`
	RegistrationNumber *string      `json:"registration_number"`
	StudentNumber      *string      `json:"student_number"`
	Programme          *int         `json:"programme"`
	Tokens             recordTokens `json:"tokens"`
	SavedAt            time.Time    `json:"saved_at"`
}

type recordTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func encodeRecord(s Session, savedAt time.Time) ([]byte, error) {
	return json.Marshal(record{
		Version:            recordVersion,
		IsLoggedIn:         s.IsLoggedIn(),
		Username:           s.Username(),
		Email:              s.Email,
		Role:               string(s.Role),
		UserID:             s.UserID,
		HasProfile:         s.HasProfile,
		RegistrationNumber: s.RegistrationNumber,
		StudentNumber:      s.StudentNumber,
		Programme:          s.ProgrammeID,
		Tokens:             recordTokens{Access: s.AccessToken, Refresh: s.RefreshToken},
		SavedAt:            savedAt.UTC(),
	})
}

// decodeRecord rejects anything that is not a complete session. A record
// missing a required field is never returned as a partial session.
func decodeRecord(data []byte) (Session, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Session{}, errors.Wrapf(errors.ErrMalformedRecord, "decoding: %s", err)
	}

	var missing []string
	if strings.TrimSpace(r.Tokens.Access) == "" {
		missing = append(missing, "tokens.access")
	}
	if strings.TrimSpace(r.Tokens.Refresh) == "" {
		missing = append(missing, "tokens.refresh")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Role) == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return Session{}, errors.Wrapf(errors.ErrMalformedRecord, "missing %s", strings.Join(missing, ", "))
	}
	role := users.ParseRole(r.Role)
	if !role.Known() {
		return Session{}, errors.Wrapf(errors.ErrMalformedRecord, "unknown role %q", r.Role)
	}

	return Session{
		AccessToken:        r.Tokens.Access,
		RefreshToken:       r.Tokens.Refresh,
		UserID:             r.UserID,
		Email:              r.Email,
		Role:               role,
		HasProfile:         r.HasProfile,
		RegistrationNumber: r.RegistrationNumber,
		StudentNumber:      r.StudentNumber,
		ProgrammeID:        r.Programme,
	}, nil
}
