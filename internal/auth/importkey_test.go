package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt.MinCost keeps these tests fast.
func hashForTest(t *testing.T, key string) string {
	t.Helper()
	hash, err := HashImportKey(key, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashImportKey() error = %v", err)
	}
	return hash
}

func TestHashImportKey_LooksBcrypt(t *testing.T) {
	hash := hashForTest(t, "import-me")
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash %q does not look like bcrypt", hash)
	}
}

func TestHashImportKey_Rejects(t *testing.T) {
	if _, err := HashImportKey("", bcrypt.MinCost); err == nil {
		t.Error("HashImportKey(\"\") should fail")
	}
	if _, err := HashImportKey(strings.Repeat("k", 73), bcrypt.MinCost); err == nil {
		t.Error("HashImportKey(73 bytes) should fail")
	}
}

func TestKeyVerifier_Verify(t *testing.T) {
	v := NewKeyVerifier(hashForTest(t, "import-me"))

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"correct key", "import-me", nil},
		{"wrong key", "import-you", ErrInvalidImportKey},
		{"empty key", "", ErrInvalidImportKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestKeyVerifier_Disabled(t *testing.T) {
	v := NewKeyVerifier("")
	if v.Enabled() {
		t.Fatal("Enabled() = true with no hash")
	}
	if err := v.Verify("anything"); !errors.Is(err, ErrImportDisabled) {
		t.Errorf("Verify() = %v, want ErrImportDisabled", err)
	}
}

func TestKeyVerifier_GarbageHash(t *testing.T) {
	v := NewKeyVerifier("not-a-bcrypt-hash")
	err := v.Verify("import-me")
	if err == nil || errors.Is(err, ErrInvalidImportKey) {
		t.Errorf("Verify() with garbage hash = %v, want a comparison error", err)
	}
}
