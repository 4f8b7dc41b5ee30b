package kv

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vizninja/ports"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore persists values in an embedded badger database on disk.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the badger database at path
func OpenBadger(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return openBadger(opts)
}

// OpenBadgerInMemory opens a badger database that lives only in memory.
func OpenBadgerInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// GetMany reads every key inside one read-only transaction.
func (b *BadgerStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", k, err)
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", k, err)
			}
			out[k] = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Apply writes the batch in a single transaction. Badger aborts a commit whose
// reads were changed by a concurrent commit, so the precondition check is
// retried a bounded number of times.
func (b *BadgerStore) Apply(ctx context.Context, batch ports.Batch) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = b.db.Update(func(txn *badger.Txn) error {
			return applyBatch(txn, batch)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("failed to apply batch: %w", err)
}

const maxConflictRetries = 5

func applyBatch(txn *badger.Txn, batch ports.Batch) error {
	for k, want := range batch.Require {
		item, err := txn.Get([]byte(k))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ports.ErrPreconditionFailed
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", k, err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", k, err)
		}
		if string(value) != want {
			return ports.ErrPreconditionFailed
		}
	}
	for _, k := range batch.Delete {
		if err := txn.Delete([]byte(k)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}
	for k, v := range batch.Set {
		if err := txn.Set([]byte(k), []byte(v)); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
