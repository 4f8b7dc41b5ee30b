package kv

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"vizninja/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]ports.KVStore {
	t.Helper()
	b, err := OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return map[string]ports.KVStore{
		"memory": NewMemoryStore(),
		"badger": b,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.GetMany(ctx, []string{"sessionId"})
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, store.Apply(ctx, ports.Batch{Set: map[string]string{
				"sessionId":   `"abc"`,
				"columnNames": `["a","b"]`,
			}}))

			got, err = store.GetMany(ctx, []string{"columnNames", "missing"})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"columnNames": `["a","b"]`}, got)

			require.NoError(t, store.Apply(ctx, ports.Batch{Delete: []string{"sessionId", "missing"}}))
			got, err = store.GetMany(ctx, []string{"sessionId", "columnNames"})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"columnNames": `["a","b"]`}, got)
		})
	}
}

func TestApplySetsAndDeletesTogether(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Apply(ctx, ports.Batch{Set: map[string]string{
				"sessionId":  `"a"`,
				"regression": `{}`,
			}}))

			require.NoError(t, store.Apply(ctx, ports.Batch{
				Set:    map[string]string{"visualizations": `{}`},
				Delete: []string{"regression"},
			}))

			got, err := store.GetMany(ctx, []string{"sessionId", "regression", "visualizations"})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"sessionId": `"a"`, "visualizations": `{}`}, got)
		})
	}
}

func TestApplyPrecondition(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Apply(ctx, ports.Batch{
				Set:     map[string]string{"visualizations": `{}`},
				Require: map[string]string{"sessionId": `"a"`},
			})
			assert.ErrorIs(t, err, ports.ErrPreconditionFailed)

			require.NoError(t, store.Apply(ctx, ports.Batch{Set: map[string]string{"sessionId": `"b"`}}))

			err = store.Apply(ctx, ports.Batch{
				Set:     map[string]string{"visualizations": `{}`},
				Require: map[string]string{"sessionId": `"a"`},
			})
			assert.ErrorIs(t, err, ports.ErrPreconditionFailed)

			got, err := store.GetMany(ctx, []string{"visualizations"})
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, store.Apply(ctx, ports.Batch{
				Set:     map[string]string{"visualizations": `{}`},
				Require: map[string]string{"sessionId": `"b"`},
			}))
			got, err = store.GetMany(ctx, []string{"visualizations"})
			require.NoError(t, err)
			assert.Equal(t, `{}`, got["visualizations"])
		})
	}
}

func TestGetManyNeverSeesPartialBatch(t *testing.T) {
	ctx := context.Background()
	keys := []string{"sessionId", "columnNames", "visualizations"}
	batches := []ports.Batch{
		{Set: map[string]string{"sessionId": "a", "columnNames": "a", "visualizations": "a"}},
		{Set: map[string]string{"sessionId": "b", "columnNames": "b"}, Delete: []string{"visualizations"}},
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Apply(ctx, batches[0]))

			done := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; ; i++ {
					select {
					case <-done:
						return
					default:
					}
					if err := store.Apply(ctx, batches[i%2]); err != nil {
						t.Error(err)
						return
					}
				}
			}()

			for i := 0; i < 2000; i++ {
				got, err := store.GetMany(ctx, keys)
				require.NoError(t, err)
				if err := consistent(got); err != nil {
					close(done)
					wg.Wait()
					t.Fatal(err)
				}
			}
			close(done)
			wg.Wait()
		})
	}
}

func consistent(values map[string]string) error {
	id := values["sessionId"]
	if values["columnNames"] != id {
		return fmt.Errorf("columns %q read with session %q", values["columnNames"], id)
	}
	viz, ok := values["visualizations"]
	if id == "a" && viz != "a" {
		return fmt.Errorf("session a read without its charts")
	}
	if id == "b" && ok {
		return fmt.Errorf("session b read with charts %q", viz)
	}
	return nil
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, first.Apply(ctx, ports.Batch{Set: map[string]string{"sessionId": `"s-1"`}}))
	require.NoError(t, first.Close())

	second, err := OpenBadger(dir)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetMany(ctx, []string{"sessionId"})
	require.NoError(t, err)
	assert.Equal(t, `"s-1"`, got["sessionId"])
}
