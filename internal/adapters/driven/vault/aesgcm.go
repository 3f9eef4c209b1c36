package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CredentialVault = (*AESGCM)(nil)

const (
	// ivSize is the AES-GCM nonce size (12 bytes is standard)
	ivSize = 12

	// keySize is the required key size for AES-256
	keySize = 32

	// KeyEnvVar is the environment variable holding the master key.
	KeyEnvVar = "TOKEN_ENCRYPTION_KEY"

	// hkdfInfo binds derived keys to provider token storage.
	hkdfInfo = "madison-connect/provider-tokens/v1"
)

var (
	// ErrInvalidIV is returned when a stored IV is not 12 bytes.
	ErrInvalidIV = errors.New("invalid iv size")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("failed to decrypt token")
)

// AESGCM seals provider tokens with AES-256-GCM.
// Ciphertext and IV are returned separately so they can be stored in
// separate columns.
type AESGCM struct {
	gcm cipher.AEAD
}

// New creates a vault from a 32-byte master key.
// The cipher key is derived from the master key with HKDF-SHA256.
func New(masterKey []byte) (*AESGCM, error) {
	if len(masterKey) != keySize {
		return nil, &domain.ConfigurationError{
			Missing:  []string{KeyEnvVar},
			Guidance: fmt.Sprintf("key must be %d bytes, got %d", keySize, len(masterKey)),
		}
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &AESGCM{gcm: gcm}, nil
}

// NewFromString parses an encoded key and creates a vault.
func NewFromString(encoded string) (*AESGCM, error) {
	key, err := ParseKey(encoded)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// ParseKey decodes a 32-byte key given as hex or base64 (standard or URL
// alphabet, padded or not).
// Returns a *domain.ConfigurationError if the key is absent or invalid.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, &domain.ConfigurationError{
			Missing:  []string{KeyEnvVar},
			Guidance: "generate one with: openssl rand -base64 32",
		}
	}

	if len(encoded) == hex.EncodedLen(keySize) {
		if key, err := hex.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(encoded); err == nil && len(key) == keySize {
			return key, nil
		}
	}

	return nil, &domain.ConfigurationError{
		Missing:  []string{KeyEnvVar},
		Guidance: fmt.Sprintf("key must be %d bytes encoded as base64 or hex", keySize),
	}
}

// Encrypt seals plaintext under a fresh random IV.
func (v *AESGCM) Encrypt(plaintext string) (domain.EncryptedValue, error) {
	if plaintext == "" {
		return domain.EncryptedValue{}, fmt.Errorf("%w: cannot encrypt an empty token", domain.ErrInvalidInput)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return domain.EncryptedValue{}, fmt.Errorf("generate iv: %w", err)
	}

	return domain.EncryptedValue{
		Ciphertext: v.gcm.Seal(nil, iv, []byte(plaintext), nil),
		IV:         iv,
	}, nil
}

// Decrypt opens a value sealed by Encrypt.
func (v *AESGCM) Decrypt(value domain.EncryptedValue) (string, error) {
	if len(value.IV) != ivSize {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidIV, len(value.IV))
	}
	if len(value.Ciphertext) < v.gcm.Overhead() {
		return "", ErrDecryptionFailed
	}

	plaintext, err := v.gcm.Open(nil, value.IV, value.Ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
