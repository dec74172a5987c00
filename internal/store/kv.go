package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// KV is the flat, namespaced key-value store every record lives in.
// Writes are last-write-wins; there are no transactions across keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}
