package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a variable is not in the store
var ErrKeyNotFound = errors.New("key not found")

// Variable is one stored secret. Keys are lower-cased on write.
type Variable struct {
	Key         string    `json:"key"`
	Value       string    `json:"-"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage holds provider API keys and other values that
// medguard.toml refers to as {key}. Values must never be logged or served.
type KeyValueStorage interface {
	// Get returns the value for key, case-insensitively, or ErrKeyNotFound
	Get(ctx context.Context, key string) (string, error)

	// Upsert stores a value and reports whether the key was new
	Upsert(ctx context.Context, key string, value string, description string) (bool, error)

	// Snapshot returns every stored value keyed by its lower-cased key
	Snapshot(ctx context.Context) (map[string]string, error)
}
