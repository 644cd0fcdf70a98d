// Package redis is a Local Store backed by Redis, for users who already run
// one and want the log shared between machines.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sakif/brewlog/internal/store"
)

// compile-time check that *Store implements store.Store
var _ store.Store = (*Store)(nil)

// Store keeps every value under namespace+key.
type Store struct {
	client    *goredis.Client
	namespace string
}

// New wraps an existing client. namespace is prepended to every key; pass
// "" to use keys as given.
func New(client *goredis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, namespace string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store/redis: ping %s: %w", addr, err)
	}
	return New(client, namespace), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.namespace + k
}

func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("store/redis: reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("store/redis: decoding %s: %w", key, err)
	}
	return true, nil
}

// Set stores value without expiry.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store/redis: encoding %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("store/redis: writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("store/redis: removing %s: %w", key, err)
	}
	return nil
}
