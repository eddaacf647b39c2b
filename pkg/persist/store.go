package persist

import (
	"context"
	"errors"
	"time"
)

// Store is a durable key/value backend for draft records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists data under key until expiresAt, overwriting any
	// previous value.
	Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error

	// Load returns the data stored under key.
	// Returns (nil, nil) if the key doesn't exist or has expired.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store. It does not close
	// clients or databases passed in by the caller.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("persist: store is closed")

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
