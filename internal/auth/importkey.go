package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultKeyCost is the bcrypt cost used by HashImportKey.
const DefaultKeyCost = 12

var (
	// ErrImportDisabled means the server has no import key configured.
	ErrImportDisabled = errors.New("auth: bulk import is disabled")
	// ErrInvalidImportKey means the presented key does not match.
	ErrInvalidImportKey = errors.New("auth: invalid import key")
)

// KeyVerifier guards the bulk import procedure. The operator configures
// only the bcrypt hash of the key; the plaintext never lives on the server.
type KeyVerifier struct {
	hash []byte
}

// NewKeyVerifier returns a verifier for hash. An empty hash disables import.
func NewKeyVerifier(hash string) *KeyVerifier {
	return &KeyVerifier{hash: []byte(hash)}
}

// Enabled reports whether an import key is configured.
func (v *KeyVerifier) Enabled() bool {
	return v != nil && len(v.hash) > 0
}

// Verify checks key against the configured hash.
func (v *KeyVerifier) Verify(key string) error {
	if !v.Enabled() {
		return ErrImportDisabled
	}
	if key == "" {
		return ErrInvalidImportKey
	}
	err := bcrypt.CompareHashAndPassword(v.hash, []byte(key))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidImportKey
		}
		return fmt.Errorf("auth: comparing import key hash: %w", err)
	}
	return nil
}

// HashImportKey produces the value operators put in the server config.
// bcrypt only looks at the first 72 bytes, so longer keys are refused.
func HashImportKey(key string, cost int) (string, error) {
	if key == "" {
		return "", fmt.Errorf("auth: import key must not be empty")
	}
	if len(key) > 72 {
		return "", fmt.Errorf("auth: import key must be 72 bytes or fewer")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing import key: %w", err)
	}
	return string(hashed), nil
}
