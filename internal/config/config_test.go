package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/wbcms-session/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("WBCMS_API_URL", "")
	t.Setenv("WBCMS_STORE", "")
	t.Setenv("WBCMS_ALLOWED_DOMAINS", "")
	t.Setenv("LOG_LEVEL", "")

	c := config.Default()
	require.Equal(t, "https://tekjuicemail.pythonanywhere.com", c.GetBaseURL())
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
	require.Equal(t, time.Duration(0), c.GetRefreshSkew())
	require.Equal(t, config.StoreFile, c.GetStoreDriver())
	require.Equal(t, []string{"students.mak.ac.ug", "cit.mak.ac.ug"}, c.GetAllowedDomains())
	require.Equal(t, zerolog.InfoLevel, c.GetLogLevel())
	require.Equal(t, "/token/refresh", c.GetEndpoints().Refresh)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WBCMS_API_URL", "http://localhost:8000/")
	t.Setenv("WBCMS_HTTP_TIMEOUT", "5s")
	t.Setenv("WBCMS_STORE", "SQLITE")
	t.Setenv("WBCMS_ALLOWED_DOMAINS", " Example.org , ,staff.example.org")
	t.Setenv("LOG_LEVEL", "debug")

	c := config.Default()
	require.Equal(t, "http://localhost:8000", c.GetBaseURL())
	require.Equal(t, 5*time.Second, c.GetHTTPTimeout())
	require.Equal(t, config.StoreSQLite, c.GetStoreDriver())
	require.Equal(t, []string{"example.org", "staff.example.org"}, c.GetAllowedDomains())
	require.Equal(t, zerolog.DebugLevel, c.GetLogLevel())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("WBCMS_HTTP_TIMEOUT", "soon")
	t.Setenv("WBCMS_STORE", "redis")
	t.Setenv("LOG_LEVEL", "loud")

	c := config.Default()
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
	require.Equal(t, config.StoreFile, c.GetStoreDriver())
	require.Equal(t, zerolog.InfoLevel, c.GetLogLevel())
}

func TestYAMLFileLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wbcms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  url: http://file.example:9000
  refresh_skew: 30s
  refresh_path: /api/token/refresh/
store:
  driver: memory
policy:
  allowed_domains: [file.example]
`), 0o600))

	chdir(t, dir)
	t.Setenv("WBCMS_CONFIG", path)
	t.Setenv("WBCMS_API_URL", "")
	t.Setenv("WBCMS_STORE", "")
	t.Setenv("WBCMS_REFRESH_SKEW", "")
	t.Setenv("WBCMS_ALLOWED_DOMAINS", "")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "http://file.example:9000", c.GetBaseURL())
	require.Equal(t, 30*time.Second, c.GetRefreshSkew())
	require.Equal(t, "/api/token/refresh/", c.GetEndpoints().Refresh)
	require.Equal(t, "/login/", c.GetEndpoints().Login)
	require.Equal(t, config.StoreMemory, c.GetStoreDriver())
	require.Equal(t, []string{"file.example"}, c.GetAllowedDomains())

	t.Setenv("WBCMS_API_URL", "http://env.example")
	c, err = config.New()
	require.NoError(t, err)
	require.Equal(t, "http://env.example", c.GetBaseURL())
}

func TestMissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WBCMS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := config.New()
	require.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
