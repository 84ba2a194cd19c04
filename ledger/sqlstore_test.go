package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSQLStore(t *testing.T) *SQLStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	store := NewSQLStore(db)
	require.NoError(t, store.Migrate())
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	host := NewHost(setupSQLStore(t))
	id, err := host.Deploy(ctx, "kv")
	require.NoError(t, err)

	require.NoError(t, host.Invoke(ctx, nil, func(tx *Tx) error {
		env, err := tx.Bind(id, "kv")
		if err != nil {
			return err
		}
		if err := env.Set(Sym("A"), "first"); err != nil {
			return err
		}
		if err := env.Set(Sym("B"), "gone soon"); err != nil {
			return err
		}
		return env.Publish("written", "A")
	}))

	// overwrite one key, delete the other
	require.NoError(t, host.Invoke(ctx, nil, func(tx *Tx) error {
		env, err := tx.Bind(id, "kv")
		if err != nil {
			return err
		}
		if err := env.Set(Sym("A"), "second"); err != nil {
			return err
		}
		return env.Remove(Sym("B"))
	}))

	require.NoError(t, host.View(ctx, func(tx *Tx) error {
		env, err := tx.Bind(id, "kv")
		require.NoError(t, err)
		var a string
		ok, err := env.Get(Sym("A"), &a)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", a)

		ok, err = env.Has(Sym("B"))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))

	events, err := host.Events(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "written", events[0].Topic)
}

func TestSQLStoreAbortLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	store := setupSQLStore(t)
	host := NewHost(store)
	id, err := host.Deploy(ctx, "kv")
	require.NoError(t, err)

	err = host.Invoke(ctx, nil, func(tx *Tx) error {
		env, err := tx.Bind(id, "kv")
		if err != nil {
			return err
		}
		_ = env.Set(Sym("A"), 1)
		return errors.New("abort")
	})
	require.Error(t, err)

	_, ok, err := store.Load(ctx, id, Sym("A"))
	require.NoError(t, err)
	assert.False(t, ok)
}
