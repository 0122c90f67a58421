// Package sqliterepo keeps session records in a SQLite database.
package sqliterepo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions    = 0o700
	filePermissions   = 0o600
	busyTimeoutMillis = 5000
	connectionTimeout = 5 * time.Second
)

const schema = `CREATE TABLE IF NOT EXISTS session_records (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

var _ session.Repo = (*Repo)(nil)

// Repo stores one row per record key. Each Put is a single UPSERT statement
// and therefore atomic.
type Repo struct {
	db      *sql.DB
	nowTime func() time.Time
}

// Open creates the database file (and its directory) if needed and ensures
// the schema exists.
func Open(path string) (*Repo, error) {
	if path == "" {
		return nil, fmt.Errorf("[sqliterepo.Open] path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if path != ":memory:" {
		_ = os.Chmod(path, filePermissions) //nolint:errcheck // permissions are tightened best effort
	}

	return &Repo{db: db, nowTime: time.Now}, nil
}

// Close closes the underlying database.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM session_records WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	return data, nil
}

func (r *Repo) Put(ctx context.Context, key string, data []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_records (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, r.nowTime().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_records WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrRecordNotFound
	}
	return nil
}
