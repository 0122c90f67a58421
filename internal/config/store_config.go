package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	storeDriverVar = "WBCMS_STORE"
	storePathVar   = "WBCMS_STORE_PATH"
	storeKeyVar    = "WBCMS_STORE_KEY"
)

// Store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// StoreConfig selects where the durable session record lives.
type StoreConfig interface {
	GetStoreDriver() string
	GetStorePath() string
	GetStoreKey() string
}

type Store struct {
	file *fileConfig
}

var _ StoreConfig = Store{}

func (s Store) GetStoreDriver() string {
	switch driver := strings.ToLower(layered(storeDriverVar, s.file.Store.Driver, StoreFile)); driver {
	case StoreSQLite, StoreMemory:
		return driver
	default:
		return StoreFile
	}
}

// GetStorePath is a directory for the file driver and a database file for
// sqlite. Both default to a location under the user's config directory.
func (s Store) GetStorePath() string {
	def := filepath.Join(".", ".wbcms")
	if dir, err := os.UserConfigDir(); err == nil {
		def = filepath.Join(dir, "wbcms")
	}
	if s.GetStoreDriver() == StoreSQLite {
		def = filepath.Join(def, "session.db")
	}
	return layered(storePathVar, s.file.Store.Path, def)
}

// GetStoreKey is the optional passphrase used to seal the record at rest.
func (s Store) GetStoreKey() string {
	return layered(storeKeyVar, s.file.Store.Key, "")
}
