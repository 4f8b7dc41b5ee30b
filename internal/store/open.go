package store

import (
	"context"
	"log"

	"vizninja/adapters/kv"
	"vizninja/adapters/postgres"
	"vizninja/internal/config"
	"vizninja/internal/errors"
	"vizninja/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// OpenKV opens the key/value store selected by cfg.Store.Driver.
// namespace scopes the postgres store and is ignored by the other drivers.
func OpenKV(ctx context.Context, cfg *config.Config, namespace string) (ports.KVStore, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		log.Printf("[Store] Using in-memory session store")
		return kv.NewMemoryStore(), nil
	case config.StoreBadger:
		log.Printf("[Store] Using badger session store at %s", cfg.Store.Path)
		s, err := kv.OpenBadger(cfg.Store.Path)
		if err != nil {
			return nil, errors.DatabaseError("failed to open badger store", err)
		}
		return s, nil
	case config.StorePostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
		if err != nil {
			return nil, errors.DatabaseError("failed to connect to database", err)
		}
		log.Printf("[Store] Using postgres session store (namespace %s)", namespace)
		return postgres.NewKVRepository(db, namespace), nil
	}
	return nil, errors.ConfigInvalid("unknown store driver " + cfg.Store.Driver)
}
