package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/session/filerepo"
	"github.com/stretchr/testify/require"
)

func TestPlainRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := filerepo.New(dir)
	require.NoError(t, err)

	_, err = repo.Get(ctx, session.RecordKey)
	require.True(t, errors.Is(err, errors.ErrRecordNotFound))

	require.NoError(t, repo.Put(ctx, session.RecordKey, []byte(`{"a":1}`)))
	data, err := repo.Get(ctx, session.RecordKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(data))

	info, err := os.Stat(filepath.Join(dir, "user.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, repo.Delete(ctx, session.RecordKey))
	require.True(t, errors.Is(repo.Delete(ctx, session.RecordKey), errors.ErrRecordNotFound))
}

func TestSealedRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := filerepo.New(dir, filerepo.WithPassphrase("correct horse"))
	require.NoError(t, err)

	require.NoError(t, repo.Put(ctx, session.RecordKey, []byte(`{"tokens":{"access":"secret"}}`)))

	raw, err := os.ReadFile(filepath.Join(dir, "user.json"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret")

	data, err := repo.Get(ctx, session.RecordKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"tokens":{"access":"secret"}}`, string(data))

	t.Run("wrong passphrase", func(t *testing.T) {
		other, err := filerepo.New(dir, filerepo.WithPassphrase("battery staple"))
		require.NoError(t, err)
		_, err = other.Get(ctx, session.RecordKey)
		require.True(t, errors.Is(err, errors.ErrMalformedRecord))
	})

	t.Run("no passphrase", func(t *testing.T) {
		plain, err := filerepo.New(dir)
		require.NoError(t, err)
		_, err = plain.Get(ctx, session.RecordKey)
		require.True(t, errors.Is(err, errors.ErrMalformedRecord))
	})
}

func TestInvalidKeys(t *testing.T) {
	repo, err := filerepo.New(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "..", "../escape", `a\b`} {
		require.Error(t, repo.Put(context.Background(), key, []byte("{}")), key)
	}
}

func TestNewRequiresDir(t *testing.T) {
	_, err := filerepo.New("")
	require.Error(t, err)
}
