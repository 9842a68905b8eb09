// Package tests holds reusable contract suites for ports adapters.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SessionStoreContractTest is a reusable test suite that verifies an
// adapter complies with ports.SessionStore.
func SessionStoreContractTest(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	key := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(key)
		sess.Slots["city"] = "gdansk"
		// JSON persistence turns numbers into float64; store numeric slot
		// values as float64 to begin with.
		sess.Slots["guests"] = float64(2)
		sess.Retries["date"] = 1
		sess.ActivePath = &domain.NodePath{Node: 3, Slot: "date"}
		sess.Digressions = []domain.DigressionFrame{
			{Path: domain.NodePath{Node: 3, Slot: "date"}, Policy: domain.ResumeReturn},
		}

		err := store.Save(ctx, key, sess)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, key, loaded.Key)
		assert.Equal(t, "gdansk", loaded.Slots["city"])
		assert.Equal(t, float64(2), loaded.Slots["guests"])
		assert.Equal(t, 1, loaded.Retries["date"])
		require.NotNil(t, loaded.ActivePath)
		assert.Equal(t, 3, loaded.ActivePath.Node)
		assert.Equal(t, "date", loaded.ActivePath.Slot)
		require.Len(t, loaded.Digressions, 1)
		assert.Equal(t, domain.ResumeReturn, loaded.Digressions[0].Policy)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Load Isolation", func(t *testing.T) {
		sess := domain.NewSession(key)
		sess.Slots["city"] = "sopot"
		require.NoError(t, store.Save(ctx, key, sess))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		loaded.Slots["city"] = "mutated"

		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "sopot", again.Slots["city"], "mutating a loaded session must not leak into the store")
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, key, domain.NewSession(key))
		require.NoError(t, err)

		err = store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		key1 := key + "-1"
		key2 := key + "-2"
		_ = store.Save(ctx, key1, domain.NewSession(key1))
		_ = store.Save(ctx, key2, domain.NewSession(key2))

		defer func() {
			_ = store.Delete(ctx, key1)
			_ = store.Delete(ctx, key2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, key1)
		assert.Contains(t, keys, key2)
	})
}
