package config

import (
	"strings"
	"time"
)

const (
	apiURLVar      = "WBCMS_API_URL"
	httpTimeoutVar = "WBCMS_HTTP_TIMEOUT"
	refreshSkewVar = "WBCMS_REFRESH_SKEW"
)

// APIConfig describes the backend the session client talks to.
type APIConfig interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetRefreshSkew() time.Duration
	GetEndpoints() Endpoints
}

// Endpoints holds the backend paths, relative to the base URL.
// ResetPassword and Profile contain a single %s for the token or user id.
type Endpoints struct {
	Login          string
	Signup         string
	Refresh        string
	ForgotPassword string
	ResetPassword  string
	Profile        string
	AcademicYears  string
}

type API struct {
	file *fileConfig
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimRight(layered(apiURLVar, a.file.API.URL, "https://tekjuicemail.pythonanywhere.com"), "/")
}

func (a API) GetHTTPTimeout() time.Duration {
	return parseDuration(layered(httpTimeoutVar, a.file.API.Timeout, ""), 30*time.Second)
}

// GetRefreshSkew is how early an access token is renewed ahead of its exp claim.
// Zero disables proactive renewal; renewal then happens only on 401.
func (a API) GetRefreshSkew() time.Duration {
	return parseDuration(layered(refreshSkewVar, a.file.API.RefreshSkew, ""), 0)
}

func (a API) GetEndpoints() Endpoints {
	f := a.file.API
	return Endpoints{
		Login:          orDefault(f.LoginPath, "/login/"),
		Signup:         orDefault(f.SignupPath, "/signup/"),
		Refresh:        orDefault(f.RefreshPath, "/token/refresh"),
		ForgotPassword: orDefault(f.ForgotPath, "/forgot-password/"),
		ResetPassword:  orDefault(f.ResetPath, "/reset-password/%s/"),
		Profile:        orDefault(f.ProfilePath, "/update_profile/%s"),
		AcademicYears:  orDefault(f.AcademicPath, "/academic_years/"),
	}
}

func parseDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
