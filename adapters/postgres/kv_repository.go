package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"vizninja/ports"

	"github.com/jmoiron/sqlx"
)

// KVRepository stores dashboard session keys in the session_kv table.
// Each namespace is an independent key space, one per dashboard profile.
type KVRepository struct {
	db        *sqlx.DB
	namespace string
}

// NewKVRepository creates a KV repository scoped to namespace
func NewKVRepository(db *sqlx.DB, namespace string) *KVRepository {
	if namespace == "" {
		namespace = "default"
	}
	return &KVRepository{db: db, namespace: namespace}
}

type kvRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// GetMany returns the stored values for keys. A single statement reads from
// one snapshot.
func (r *KVRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT key, value FROM session_kv WHERE namespace = ? AND key IN (?)`, r.namespace, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	var rows []kvRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get session keys: %w", err)
	}
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Apply runs the batch in one transaction. A transaction-scoped advisory lock
// on the namespace serializes batches, so preconditions hold until commit.
func (r *KVRepository) Apply(ctx context.Context, batch ports.Batch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.namespace); err != nil {
		return fmt.Errorf("failed to lock namespace: %w", err)
	}

	for k, want := range batch.Require {
		var value string
		err := tx.GetContext(ctx, &value,
			`SELECT value FROM session_kv WHERE namespace = $1 AND key = $2`,
			r.namespace, k)
		if err == sql.ErrNoRows || (err == nil && value != want) {
			return ports.ErrPreconditionFailed
		}
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", k, err)
		}
	}

	if len(batch.Delete) > 0 {
		query, args, err := sqlx.In(`DELETE FROM session_kv WHERE namespace = ? AND key IN (?)`, r.namespace, batch.Delete)
		if err != nil {
			return fmt.Errorf("failed to build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to delete session keys: %w", err)
		}
	}

	upsert := `
		INSERT INTO session_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	for k, v := range batch.Set {
		if _, err := tx.ExecContext(ctx, upsert, r.namespace, k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session keys: %w", err)
	}
	return nil
}

// Close closes the underlying database handle
func (r *KVRepository) Close() error {
	return r.db.Close()
}
