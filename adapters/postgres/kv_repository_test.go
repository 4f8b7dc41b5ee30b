package postgres

import (
	"context"
	"os"
	"testing"

	"vizninja/internal/migration"
	"vizninja/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVRepository(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping postgres test")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	repo := NewKVRepository(db, "kv-test")
	defer repo.Close()
	reset := ports.Batch{Delete: []string{"sessionId", "stats", "regression"}}
	require.NoError(t, repo.Apply(ctx, reset))
	defer repo.Apply(ctx, reset)

	require.NoError(t, repo.Apply(ctx, ports.Batch{Set: map[string]string{"sessionId": `"s-1"`, "stats": `{}`, "regression": `{}`}}))
	require.NoError(t, repo.Apply(ctx, ports.Batch{Set: map[string]string{"sessionId": `"s-2"`}, Delete: []string{"regression"}}))

	got, err := repo.GetMany(ctx, []string{"sessionId", "stats", "regression"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sessionId": `"s-2"`, "stats": `{}`}, got)

	err = repo.Apply(ctx, ports.Batch{
		Set:     map[string]string{"regression": `{}`},
		Require: map[string]string{"sessionId": `"s-1"`},
	})
	assert.ErrorIs(t, err, ports.ErrPreconditionFailed)

	got, err = repo.GetMany(ctx, []string{"regression"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
