package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/ports"
)

// encryptedPrefix marks a field sealed by the encryption middleware.
const encryptedPrefix = "enc:v1:"

// ErrDecrypt is returned when no configured key opens a sealed field.
var ErrDecrypt = errors.New("decryption failed with all available keys")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.EventStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the free-text
// fields of events (prompt, user agent, referer) with AES-GCM.
// ID, type and timestamp stay in clear so that stores can order and prune.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	return func(next ports.EventStore) ports.EventStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Append(ctx context.Context, event domain.AnalyticsEvent, capacity int) error {
	for _, field := range []*string{&event.Prompt, &event.UserAgent, &event.Referer} {
		sealed, err := m.seal(*field)
		if err != nil {
			return fmt.Errorf("failed to encrypt event: %w", err)
		}
		*field = sealed
	}
	return m.next.Append(ctx, event, capacity)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	events, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range events {
		e := &events[i]
		for _, field := range []*string{&e.Prompt, &e.UserAgent, &e.Referer} {
			plain, err := m.open(*field)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt event %s: %w", e.ID, err)
			}
			*field = plain
		}
	}
	return events, nil
}

func (m *encryptionMiddleware) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return m.next.DeleteBefore(ctx, cutoff)
}

func (m *encryptionMiddleware) seal(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	ciphertext, err := encrypt([]byte(s), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return encryptedPrefix + base64.RawStdEncoding.EncodeToString(ciphertext), nil
}

// open returns fields without the prefix as they are: those were recorded
// before encryption was enabled.
func (m *encryptionMiddleware) open(s string) (string, error) {
	encoded, ok := strings.CutPrefix(s, encryptedPrefix)
	if !ok {
		return s, nil
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
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

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, ErrDecrypt
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
