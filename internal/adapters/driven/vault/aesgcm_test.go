package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/madison-studio/madison-connect/internal/core/domain"
)

var testKey = []byte("01234567890123456789012345678901")

func newTestVault(t *testing.T) *AESGCM {
	t.Helper()
	v, err := New(testKey)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestAESGCM_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	for _, token := range []string{"a", "gho_abc123", "ya29.a0AfH6SM" + string(bytes.Repeat([]byte("x"), 2048)), "токен"} {
		sealed, err := v.Encrypt(token)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if len(sealed.IV) != ivSize {
			t.Errorf("iv size: got %d, want %d", len(sealed.IV), ivSize)
		}
		if bytes.Contains(sealed.Ciphertext, []byte(token)) {
			t.Error("ciphertext contains plaintext")
		}

		got, err := v.Decrypt(sealed)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got != token {
			t.Errorf("got %q, want %q", got, token)
		}
	}
}

func TestAESGCM_FreshIVPerCall(t *testing.T) {
	v := newTestVault(t)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sealed, err := v.Encrypt("same-token")
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if seen[string(sealed.IV)] {
			t.Fatal("IV reused")
		}
		seen[string(sealed.IV)] = true
	}
}

func TestAESGCM_EmptyPlaintext(t *testing.T) {
	v := newTestVault(t)

	_, err := v.Encrypt("")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAESGCM_WrongKey(t *testing.T) {
	v1 := newTestVault(t)
	v2, err := New([]byte("abcdefghijklmnopqrstuvwxyz012345"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := v1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := v2.Decrypt(sealed); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestAESGCM_Tampered(t *testing.T) {
	v := newTestVault(t)

	sealed, err := v.Encrypt("secret-token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tampered := domain.EncryptedValue{
		Ciphertext: append([]byte(nil), sealed.Ciphertext...),
		IV:         sealed.IV,
	}
	tampered.Ciphertext[0] ^= 0xff
	if _, err := v.Decrypt(tampered); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("tampered ciphertext: expected ErrDecryptionFailed, got %v", err)
	}

	otherIV := domain.EncryptedValue{Ciphertext: sealed.Ciphertext, IV: make([]byte, ivSize)}
	if _, err := v.Decrypt(otherIV); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("wrong iv: expected ErrDecryptionFailed, got %v", err)
	}

	shortIV := domain.EncryptedValue{Ciphertext: sealed.Ciphertext, IV: []byte{1, 2, 3}}
	if _, err := v.Decrypt(shortIV); !errors.Is(err, ErrInvalidIV) {
		t.Errorf("short iv: expected ErrInvalidIV, got %v", err)
	}

	if _, err := v.Decrypt(domain.EncryptedValue{IV: sealed.IV}); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("empty ciphertext: expected ErrDecryptionFailed, got %v", err)
	}
}

func TestAESGCM_KeyIsDerived(t *testing.T) {
	v := newTestVault(t)
	sealed, err := v.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// The raw master key must not open the ciphertext.
	block, err := aes.NewCipher(testKey)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("NewGCM: %v", err)
	}
	if _, err := gcm.Open(nil, sealed.IV, sealed.Ciphertext, nil); err == nil {
		t.Error("ciphertext opened with the raw master key")
	}
}

func TestNew_InvalidKeySize(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		_, err := New(make([]byte, size))
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("size %d: expected ErrConfiguration, got %v", size, err)
		}
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		wantErr bool
	}{
		{name: "hex", encoded: hex.EncodeToString(testKey)},
		{name: "base64 std", encoded: base64.StdEncoding.EncodeToString(testKey)},
		{name: "base64 raw std", encoded: base64.RawStdEncoding.EncodeToString(testKey)},
		{name: "base64 url", encoded: base64.URLEncoding.EncodeToString(testKey)},
		{name: "surrounding whitespace", encoded: "  " + base64.StdEncoding.EncodeToString(testKey) + "\n"},
		{name: "empty", encoded: "", wantErr: true},
		{name: "too short", encoded: base64.StdEncoding.EncodeToString(testKey[:16]), wantErr: true},
		{name: "not encoded", encoded: "this is not a key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseKey(tt.encoded)
			if tt.wantErr {
				var cfgErr *domain.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigurationError, got %v", err)
				}
				if cfgErr.Missing[0] != KeyEnvVar {
					t.Errorf("missing: got %v", cfgErr.Missing)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey: %v", err)
			}
			if !bytes.Equal(key, testKey) {
				t.Errorf("key mismatch")
			}
		})
	}
}

func TestNewFromString(t *testing.T) {
	v, err := NewFromString(base64.StdEncoding.EncodeToString(testKey))
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}

	sealed, err := newTestVault(t).Encrypt("shared")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := v.Decrypt(sealed)
	if err != nil || got != "shared" {
		t.Errorf("vaults from the same key should interoperate: %q %v", got, err)
	}
}
