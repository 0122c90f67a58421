package session

import "context"

// RecordKey is the fixed key the session record is stored under.
const RecordKey = "user"

// Repo is durable key/value storage for the serialized session record.
// Put must be atomic: a reader sees either the previous or the new value.
// Get returns errors.ErrRecordNotFound when the key is absent.
type Repo interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
