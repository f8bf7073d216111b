package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test-secret"

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	sealer, err := NewSealer(testSecret)
	require.NoError(t, err)
	store, err := OpenSQLite(context.Background(), ":memory:", sealer)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck
	return store
}

// storeFactories lets every behaviour test run against each backend. Redis
// runs in-process on miniredis.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newSQLiteStore(t) },
		"redis":  func(t *testing.T) Store { return newRedisStore(t) },
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			area := NewArea(factory(t), "browser-1")

			require.NoError(t, area.Set(ctx, KindAdmin, "T1"))

			got, err := area.Get(ctx, KindAdmin)
			require.NoError(t, err)
			assert.Equal(t, "T1", got)
		})
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			area := NewArea(factory(t), "browser-1")

			require.NoError(t, area.Set(ctx, KindClient, "old"))
			require.NoError(t, area.Set(ctx, KindClient, "new"))

			got, err := area.Get(ctx, KindClient)
			require.NoError(t, err)
			assert.Equal(t, "new", got)
		})
	}
}

func TestStore_KindsAreIndependent(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			area := NewArea(factory(t), "browser-1")

			require.NoError(t, area.Set(ctx, KindAdmin, "A"))
			require.NoError(t, area.Set(ctx, KindClient, "C"))
			require.NoError(t, area.Clear(ctx, KindAdmin))

			_, err := area.Get(ctx, KindAdmin)
			assert.ErrorIs(t, err, ErrNoToken)

			got, err := area.Get(ctx, KindClient)
			require.NoError(t, err)
			assert.Equal(t, "C", got)
		})
	}
}

func TestStore_BrowsersAreIsolated(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			require.NoError(t, NewArea(store, "browser-1").Set(ctx, KindAdmin, "A1"))

			_, err := NewArea(store, "browser-2").Get(ctx, KindAdmin)
			assert.ErrorIs(t, err, ErrNoToken)
		})
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			area := NewArea(factory(t), "browser-1")
			require.NoError(t, area.Set(ctx, KindAdmin, "A"))

			require.NoError(t, area.Clear(ctx, KindAdmin))
			require.NoError(t, area.Clear(ctx, KindAdmin))

			has, err := area.Has(ctx, KindAdmin)
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestStore_RejectsBadInput(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			err := store.Set(ctx, "browser-1", Kind("driver"), "x")
			assert.ErrorIs(t, err, ErrInvalidKind)

			err = store.Set(ctx, "browser-1", KindNone, "x")
			assert.ErrorIs(t, err, ErrInvalidKind)

			err = store.Set(ctx, "browser-1", KindAdmin, "")
			assert.ErrorIs(t, err, ErrEmptyToken)

			_, err = store.Get(ctx, "", KindAdmin)
			assert.ErrorIs(t, err, ErrEmptyBrowser)

			assert.NoError(t, store.Ping(ctx))
		})
	}
}

func TestKind_StorageKey(t *testing.T) {
	assert.Equal(t, "admin_token", KindAdmin.StorageKey())
	assert.Equal(t, "cliente_token", KindClient.StorageKey())
	assert.Equal(t, "none", KindNone.String())
	assert.False(t, KindNone.Valid())
}

func TestMemoryStore_DropsEmptyAreas(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "b", KindAdmin, "A"))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Clear(ctx, "b", KindAdmin))
	assert.Equal(t, 0, store.Len())
}

func TestSQLiteStore_TokensAreSealed(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Set(ctx, "browser-1", KindAdmin, "plain-token-value"))

	var sealed string
	err := store.db.QueryRowContext(ctx,
		"SELECT token_sealed FROM session_tokens WHERE browser_id = ? AND storage_key = ?",
		"browser-1", "admin_token").Scan(&sealed)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "plain-token-value")
}

func TestSQLiteStore_WrongSecretFails(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Set(ctx, "browser-1", KindAdmin, "T"))

	other, err := NewSealer("another-secret-of-16+chars")
	require.NoError(t, err)
	store.sealer = other

	_, err = store.Get(ctx, "browser-1", KindAdmin)
	assert.True(t, errors.Is(err, ErrDecryption))
}
