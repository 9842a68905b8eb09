package middleware_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/maxbot-ai/dialogtree/internal/adapters/memory"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func sampleSession() *domain.Session {
	sess := domain.NewSession("s1")
	sess.Slots["date"] = "2026-08-31"
	sess.Slots["card_number"] = "4111 1111 1111 1111"
	sess.Slots["guest"] = map[string]any{"name": "Ola", "phone": "+48 123 456 789"}
	sess.Retries["date"] = 1
	sess.ActivePath = &domain.NodePath{Node: 3, Slot: "time"}
	return sess
}

func TestEncryption_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	store := middleware.Chain(backend, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: newKey(t),
	}))

	require.NoError(t, store.Save(ctx, "s1", sampleSession()))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", loaded.Slots["date"])
	assert.Equal(t, 1, loaded.Retries["date"])
	require.NotNil(t, loaded.ActivePath)
	assert.Equal(t, "time", loaded.ActivePath.Slot)
}

func TestEncryption_BackendSeesOnlyEnvelope(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	store := middleware.Chain(backend, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: newKey(t),
	}))

	require.NoError(t, store.Save(ctx, "s1", sampleSession()))

	raw, err := backend.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, raw.Slots, 1, "only the envelope slot may reach the backend")
	assert.NotContains(t, raw.Slots, "card_number")
	assert.Nil(t, raw.ActivePath)
}

func TestEncryption_KeyRotation(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	oldKey, newActive := newKey(t), newKey(t)

	oldStore := middleware.Chain(backend, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: oldKey,
	}))
	require.NoError(t, oldStore.Save(ctx, "s1", sampleSession()))

	// After rotation the old key moves to the fallback list; sessions
	// sealed under it still open.
	rotated := middleware.Chain(backend, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey:    newActive,
		FallbackKeys: [][]byte{oldKey},
	}))
	loaded, err := rotated.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", loaded.Slots["date"])

	// Without the fallback the session is unreadable.
	withoutFallback := middleware.Chain(backend, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: newActive,
	}))
	_, err = withoutFallback.Load(ctx, "s1")
	assert.ErrorContains(t, err, "failed to decrypt session")
}

func TestEncryption_RejectsPlaintextSessions(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	require.NoError(t, backend.Save(ctx, "s1", sampleSession()))

	store := middleware.Chain(backend, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: newKey(t),
	}))
	_, err := store.Load(ctx, "s1")
	assert.ErrorContains(t, err, "missing the encrypted envelope")
}

func TestRedaction_MasksMatchingSlots(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	store := middleware.Chain(backend, middleware.NewRedaction([]string{"card_.*", "phone"}))

	live := sampleSession()
	require.NoError(t, store.Save(ctx, "s1", live))

	stored, err := backend.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", stored.Slots["card_number"])
	assert.Equal(t, "2026-08-31", stored.Slots["date"])
	guest := stored.Slots["guest"].(map[string]any)
	assert.Equal(t, "***", guest["phone"], "nested slot maps are masked too")
	assert.Equal(t, "Ola", guest["name"])

	// The live session the engine holds is untouched.
	assert.Equal(t, "4111 1111 1111 1111", live.Slots["card_number"])
	assert.Equal(t, "+48 123 456 789", live.Slots["guest"].(map[string]any)["phone"])
}

func TestChain_Order(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()

	// Redaction outside encryption: values are masked first, then sealed,
	// so not even ciphertext of the PII reaches the backend.
	store := middleware.Chain(backend,
		middleware.NewRedaction([]string{"card_.*"}),
		middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: newKey(t)}),
	)

	require.NoError(t, store.Save(ctx, "s1", sampleSession()))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Slots["card_number"])
	assert.Equal(t, "2026-08-31", loaded.Slots["date"])
}
