package ports

import (
	"context"
	"errors"
)

// ErrPreconditionFailed is returned by KVStore.Apply when a Batch.Require
// entry does not match the stored value. Nothing is written.
var ErrPreconditionFailed = errors.New("kv: precondition failed")

// Batch is a group of writes applied together. When Require is set the batch
// is applied only if every listed key currently holds the given value.
type Batch struct {
	Set     map[string]string
	Delete  []string
	Require map[string]string
}

// KVStore is a string key/value store holding the dashboard's persisted state.
// GetMany reads all keys from one consistent snapshot and omits missing keys.
// Apply writes a whole Batch or nothing; readers never observe part of it.
type KVStore interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Apply(ctx context.Context, batch Batch) error
	Close() error
}
