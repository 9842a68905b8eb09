package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

// envelopeSlot is the single slot key an encrypted session carries at
// rest. Everything else about the session is opaque to the store.
const envelopeSlot = "__encrypted__"

// EncryptionConfig holds the keys for sealing and opening sessions.
type EncryptionConfig struct {
	// ActiveKey seals new snapshots. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key fails to open
	// a snapshot, which allows rotating keys without downtime.
	FallbackKeys [][]byte
}

type encryptionStore struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryption returns a middleware that seals sessions with AES-GCM
// before they reach the backing store. Slot values, the active path, and
// the digression stack are all hidden from the storage backend.
func NewEncryption(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionStore{next: next, config: config}
	}
}

func (s *encryptionStore) Save(ctx context.Context, key string, sess *domain.Session) error {
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	sealed, err := seal(plain, s.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	envelope := domain.NewSession(key)
	envelope.Slots[envelopeSlot] = base64.StdEncoding.EncodeToString(sealed)
	return s.next.Save(ctx, key, envelope)
}

func (s *encryptionStore) Load(ctx context.Context, key string) (*domain.Session, error) {
	envelope, err := s.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelope.Slots[envelopeSlot].(string)
	if !ok {
		// A plaintext session under an encryption-enabled store is a
		// misconfiguration; failing beats silently serving it.
		return nil, errors.New("session is missing the encrypted envelope")
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}

	plain, err := openWithRotation(sealed, s.config.ActiveKey, s.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted session: %w", err)
	}
	if sess.Slots == nil {
		sess.Slots = make(map[string]any)
	}
	if sess.Retries == nil {
		sess.Retries = make(map[string]int)
	}
	return &sess, nil
}

func (s *encryptionStore) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

func (s *encryptionStore) List(ctx context.Context) ([]string, error) {
	return s.next.List(ctx)
}

func seal(plain, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func openWithRotation(sealed, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := open(sealed, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := open(sealed, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func open(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, rest := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, rest, nil)
}
