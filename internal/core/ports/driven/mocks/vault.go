package mocks

import (
	"encoding/binary"
	"errors"
	"strings"
	"sync"

	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

var _ driven.CredentialVault = (*MockVault)(nil)

const sealedPrefix = "sealed:"

// MockVault is a reversible, NOT secure CredentialVault for testing.
// Every Encrypt call uses a new counter IV.
type MockVault struct {
	mu      sync.Mutex
	counter uint64

	EncryptErr error
}

// NewMockVault creates a new MockVault
func NewMockVault() *MockVault {
	return &MockVault{}
}

func (m *MockVault) Encrypt(plaintext string) (domain.EncryptedValue, error) {
	if m.EncryptErr != nil {
		return domain.EncryptedValue{}, m.EncryptErr
	}
	if plaintext == "" {
		return domain.EncryptedValue{}, domain.ErrInvalidInput
	}
	m.mu.Lock()
	m.counter++
	iv := make([]byte, 12)
	binary.BigEndian.PutUint64(iv[4:], m.counter)
	m.mu.Unlock()

	return domain.EncryptedValue{Ciphertext: []byte(sealedPrefix + plaintext), IV: iv}, nil
}

func (m *MockVault) Decrypt(value domain.EncryptedValue) (string, error) {
	s := string(value.Ciphertext)
	if !strings.HasPrefix(s, sealedPrefix) || len(value.IV) != 12 {
		return "", errors.New("mock vault: not sealed")
	}
	return strings.TrimPrefix(s, sealedPrefix), nil
}

// Seal encrypts without error handling (for test setup).
func (m *MockVault) Seal(plaintext string) domain.EncryptedValue {
	v, _ := m.Encrypt(plaintext)
	return v
}
