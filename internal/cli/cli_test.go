package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/wbcms-session/auth"
	"github.com/jrsteele09/wbcms-session/gateway"
	"github.com/jrsteele09/wbcms-session/internal/cli"
	"github.com/jrsteele09/wbcms-session/internal/config"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@cit.mak.ac.ug"
	testPassword = "Abc12345!"
)

type testFixture struct {
	srv       *httptest.Server
	calls     atomic.Int32
	refreshes atomic.Int32
	// refreshFails makes the refresh endpoint reject every token.
	refreshFails atomic.Bool
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != testEmail || creds["password"] != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access":  "access-1",
			"refresh": "refresh-1",
			"user": map[string]any{
				"email":       testEmail,
				"role":        "lecturer",
				"user_id":     12,
				"has_profile": "true",
			},
		})
	})
	mux.HandleFunc("/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		if f.refreshFails.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "access-2"})
	})
	mux.HandleFunc("/reset-password/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully"})
	})
	mux.HandleFunc("/academic_years/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "title": "2025/2026"}})
	})

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	t.Setenv("WBCMS_API_URL", f.srv.URL)
	t.Setenv("WBCMS_STORE", config.StoreSQLite)
	t.Setenv("WBCMS_STORE_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("WBCMS_CONFIG", "")
	return f
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// execute runs one wbcms invocation; every call reopens the store like a new process.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)

	cmd := cli.NewRootCommand(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginSessionSurvivesBetweenRuns(t *testing.T) {
	setupTestFixture(t)

	out, err := execute(t, "", "login", "-e", testEmail, "-p", testPassword, "--from", "/lecturer/courses")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as jane (lecturer)")
	require.Contains(t, out, "Now at /lecturer/courses")

	out, err = execute(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Email:     "+testEmail)
	require.Contains(t, out, "Role:      lecturer")
	require.Contains(t, out, "User ID:   12")

	out, err = execute(t, "", "navigate", "/student")
	require.NoError(t, err)
	require.Equal(t, "render /lecturer\n", out)

	out, err = execute(t, "", "login", "-e", testEmail, "-p", testPassword)
	require.Error(t, err)
	require.Contains(t, out, "Already signed in as jane")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	setupTestFixture(t)

	out, err := execute(t, testPassword+"\n", "login", "-e", testEmail)
	require.NoError(t, err)
	require.Contains(t, out, "Now at /lecturer")
}

func TestLoginWrongPassword(t *testing.T) {
	setupTestFixture(t)

	out, err := execute(t, "", "login", "-e", testEmail, "-p", "Wrong123!")
	require.Error(t, err)
	require.Contains(t, out, "Invalid email or password")

	_, err = execute(t, "", "whoami")
	require.True(t, errors.Is(err, errors.ErrNotLoggedIn))
}

func TestLogout(t *testing.T) {
	setupTestFixture(t)

	_, err := execute(t, "", "login", "-e", testEmail, "-p", testPassword)
	require.NoError(t, err)

	out, err := execute(t, "", "logout")
	require.NoError(t, err)
	require.Equal(t, "Signed out\n", out)

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	require.Equal(t, "Not signed in\n", out)

	out, err = execute(t, "", "navigate", "/lecturer")
	require.NoError(t, err)
	require.Equal(t, "render /login\nReturning to /lecturer after sign-in\n", out)
}

func TestRequestsRefreshTheAccessToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := execute(t, "", "login", "-e", testEmail, "-p", testPassword)
	require.NoError(t, err)

	out, err := execute(t, "", "years")
	require.NoError(t, err)
	require.Equal(t, "1\t2025/2026\n", out)
	require.Equal(t, int32(1), f.refreshes.Load())

	out, err = execute(t, "", "get", "/academic_years/")
	require.NoError(t, err)
	require.Contains(t, out, `"title": "2025/2026"`)
	require.Equal(t, int32(1), f.refreshes.Load(), "the refreshed token was persisted")
}

func TestFailedRefreshSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.refreshFails.Store(true)

	_, err := execute(t, "", "login", "-e", testEmail, "-p", testPassword)
	require.NoError(t, err)

	out, err := execute(t, "", "years")
	require.True(t, errors.Is(err, gateway.ErrSessionExpired))
	require.Contains(t, out, cli.SessionExpiredMsg)

	_, err = execute(t, "", "whoami")
	require.True(t, errors.Is(err, errors.ErrNotLoggedIn))
}

func TestResetPassword(t *testing.T) {
	f := setupTestFixture(t)

	out, err := execute(t, "", "reset-password", "tok-1", "-p", "short")
	require.Error(t, err)
	require.Contains(t, out, auth.PasswordTooShortMsg)
	require.Contains(t, out, auth.PasswordNoSymbolMsg)
	require.Equal(t, int32(0), f.calls.Load())

	out, err = execute(t, "", "reset-password", "tok-1", "-p", testPassword, "--confirm", testPassword, "--redirect-delay", "0s")
	require.NoError(t, err)
	require.Equal(t, "Password has been reset successfully\nNow at /login\n", out)
}

func TestYearsRequiresValidTitle(t *testing.T) {
	f := setupTestFixture(t)

	out, err := execute(t, "", "years", "--add", "2026/2028")
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.Contains(t, out, "End year must be start year + 1")
	require.Equal(t, int32(0), f.calls.Load())
}
