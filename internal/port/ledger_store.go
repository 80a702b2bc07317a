package port

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KeyValueStore.Get when the key was never written.
var ErrKeyNotFound = errors.New("key not found")

// Entry is a single key/value pair written by KeyValueStore.Put.
type Entry struct {
	Key   string
	Value []byte
}

type KeyValueStore interface {
	// Get returns the raw value stored under key, or ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes all entries atomically: either every entry is stored or none is
	Put(ctx context.Context, entries ...Entry) error
}

type IdempotencyStore interface {
	// SetIdempotency claims a key for idempotency check, returns false if already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops a claim so the key can be used again
	ReleaseIdempotency(ctx context.Context, key string) error
}
