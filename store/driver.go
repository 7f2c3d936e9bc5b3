package store

import (
	"context"
)

// ScheduleKey is the fixed key under which the whole serialized schedule is
// persisted. The schedule is the sole unit of persistence; the driver sees
// only an opaque blob.
const ScheduleKey = "campusclock/schedule"

// Driver is the interface a key-value store backend must implement.
type Driver interface {
	// Get returns the stored value for the key. The second result is false
	// when the key is absent, which is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value under the key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	Close() error
}
