// Package filerepo stores session records as files, one per key, optionally
// sealed with a passphrase.
package filerepo

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	dirPermissions  = 0o700
	filePermissions = 0o600
	nonceSize       = 24
)

// sealedMagic prefixes sealed files so plain and sealed records are never confused.
var sealedMagic = []byte("WBCMS-SEALED-1\n")

var _ session.Repo = (*Repo)(nil)

// Repo is a directory of record files. Writes go to a temporary file that is
// renamed over the target, so readers never observe a torn record.
type Repo struct {
	dir    string
	key    *[32]byte
	sealed bool
}

// Option configures a Repo.
type Option func(*Repo)

// WithPassphrase seals every record with a key derived from passphrase.
// An empty passphrase leaves records in plain JSON.
func WithPassphrase(passphrase string) Option {
	return func(r *Repo) {
		if passphrase == "" {
			return
		}
		key := sha256.Sum256([]byte(passphrase))
		r.key = &key
		r.sealed = true
	}
}

// New creates the directory if needed and returns a Repo rooted at dir.
func New(dir string, options ...Option) (*Repo, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("[filerepo.New] dir is required")
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("[filerepo.New] creating %s: %w", dir, err)
	}
	r := &Repo{dir: dir}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *Repo) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid record key %q", key)
	}
	return filepath.Join(r.dir, key+".json"), nil
}

func (r *Repo) Get(_ context.Context, key string) ([]byte, error) {
	path, err := r.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	return r.open(data)
}

func (r *Repo) Put(_ context.Context, key string, data []byte) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if data, err = r.seal(data); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("syncing temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp record: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("setting record permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing record: %w", err)
	}
	return nil
}

func (r *Repo) Delete(_ context.Context, key string) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.ErrRecordNotFound
		}
		return fmt.Errorf("removing record: %w", err)
	}
	return nil
}

func (r *Repo) seal(plain []byte) ([]byte, error) {
	if !r.sealed {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	out := append([]byte(nil), sealedMagic...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, r.key), nil
}

// open returns the plaintext record. A sealed file without a key, a plain
// file when a key is configured and a failed authentication all count as
// malformed, which the store treats as no session.
func (r *Repo) open(data []byte) ([]byte, error) {
	isSealed := bytes.HasPrefix(data, sealedMagic)
	if isSealed != r.sealed {
		return nil, errors.Wrapf(errors.ErrMalformedRecord, "record sealing does not match configuration")
	}
	if !r.sealed {
		return data, nil
	}

	data = data[len(sealedMagic):]
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, errors.Wrapf(errors.ErrMalformedRecord, "sealed record too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, r.key)
	if !ok {
		return nil, errors.Wrapf(errors.ErrMalformedRecord, "sealed record failed authentication")
	}
	return plain, nil
}
