package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest SESSION_SECRET accepted.
const MinSecretLength = 16

const hkdfInfo = "expressofrete portal session tokens v1"

var (
	// ErrWeakSecret is returned when the sealing secret is too short.
	ErrWeakSecret = errors.New("session: secret must be at least 16 characters")

	// ErrDecryption is returned when a sealed token cannot be opened, either
	// because the secret changed or the row was tampered with.
	ErrDecryption = errors.New("session: decryption failed: wrong secret or corrupted data")
)

// Sealer encrypts tokens at rest with AES-256-GCM. The key is derived from a
// configured secret with HKDF-SHA256. Each ciphertext is bound to its
// browser id and kind, so a sealed value copied into another slot won't open.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the sealing key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	// Key size is fixed at 32 bytes so neither call can fail.
	block, _ := aes.NewCipher(key) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block) //nolint:errcheck

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts token and returns hex-encoded nonce+ciphertext.
func (s *Sealer) Seal(browserID string, kind Kind, token string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := s.aead.Seal(nonce, nonce, []byte(token), additionalData(browserID, kind))
	return hex.EncodeToString(ciphertext), nil
}

// Open reverses Seal.
func (s *Sealer) Open(browserID string, kind Kind, sealed string) (string, error) {
	raw, err := hex.DecodeString(sealed)
	if err != nil {
		return "", ErrDecryption
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrDecryption
	}

	plaintext, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], additionalData(browserID, kind))
	if err != nil {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}

func additionalData(browserID string, kind Kind) []byte {
	return []byte(browserID + "/" + kind.StorageKey())
}
