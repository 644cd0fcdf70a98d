// Package store is the client's durable key→value store. Values are JSON
// documents; each registry owns one key per user.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Key prefixes of the per-user collections.
const (
	PrefixRecords   = "coffeeBeans"
	PrefixInventory = "userBeanInventory"
	PrefixDevices   = "userDevices"
)

// Global session keys.
const (
	KeyProfile = "userProfile"
	KeyOpenID  = "userOpenId"
	KeyToken   = "userToken"
)

// GuestUser owns the collections written before anyone has logged in.
const GuestUser = "guest"

// Store reads and writes JSON values by key.
//
// Get decodes the stored value into dst and reports whether the key
// existed. A missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// UserKey scopes prefix to userID, falling back to the guest user.
func UserKey(prefix, userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = GuestUser
	}
	return prefix + "_" + userID
}

// Memory is an in-process Store. The CLI uses it for --ephemeral runs and
// tests use it in place of a database.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// compile-time check that *Memory implements Store
var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("store: decoding %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
