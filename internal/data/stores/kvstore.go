package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
	gkv "github.com/mozilla-frontend-infra/codetribute/pkg/kv"
)

// KVStore implements kv.KV in memory. Entries live for the lifetime of the
// process; nothing is written to disk.
type KVStore struct {
	data *gkv.Store[string, kv.Entry]
	now  func() time.Time
}

var _ kv.KV = (*KVStore)(nil)

// NewKVStore creates a new in-memory KV store.
func NewKVStore() *KVStore {
	return &KVStore{
		data: gkv.New[string, kv.Entry](),
		now:  time.Now,
	}
}

// Get retrieves and deserializes a value by key.
// Returns an error wrapping kv.ErrNotFound if the key does not exist.
// Expired entries are lazily deleted and treated as missing.
func (s *KVStore) Get(ctx context.Context, key string, dest any) error {
	entry, err := s.GetRaw(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}

	return nil
}

// Set stores a value with no expiry.
func (s *KVStore) Set(_ context.Context, key string, value any) error {
	return s.set(key, value, nil)
}

// SetTTL stores a value that expires after the given duration.
func (s *KVStore) SetTTL(_ context.Context, key string, value any, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl)
	return s.set(key, value, &expiresAt)
}

// Delete removes a key.
func (s *KVStore) Delete(_ context.Context, key string) error {
	s.data.Delete(key)
	return nil
}

// Has returns whether a key exists (and is not expired).
func (s *KVStore) Has(ctx context.Context, key string) (bool, error) {
	if _, err := s.GetRaw(ctx, key); err != nil {
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListKeys returns all non-expired keys in sorted order.
func (s *KVStore) ListKeys(_ context.Context) ([]string, error) {
	now := s.now()
	var keys []string
	for _, key := range s.data.Keys() {
		if entry, ok := s.data.Get(key); ok && !entry.Expired(now) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// GetRaw retrieves a raw KV entry with metadata.
// Returns an error wrapping kv.ErrNotFound if the key does not exist.
func (s *KVStore) GetRaw(_ context.Context, key string) (kv.Entry, error) {
	entry, ok := s.data.Get(key)
	if !ok {
		return kv.Entry{}, fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}

	if entry.Expired(s.now()) {
		s.data.Delete(key)
		return kv.Entry{}, fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}

	return entry, nil
}

// SweepExpired deletes all entries whose TTL has passed and reports how many
// were removed.
func (s *KVStore) SweepExpired(_ context.Context) (int, error) {
	now := s.now()
	return s.data.DeleteFunc(func(_ string, e kv.Entry) bool { return e.Expired(now) }), nil
}

// Len returns the number of stored entries, expired or not.
func (s *KVStore) Len() int {
	return s.data.Len()
}

func (s *KVStore) set(key string, value any, expiresAt *time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	now := s.now()
	created := now
	if prev, ok := s.data.Get(key); ok {
		created = prev.CreatedAt
	}

	s.data.Set(key, kv.Entry{
		Key:       key,
		Value:     data,
		ExpiresAt: expiresAt,
		CreatedAt: created,
		UpdatedAt: now,
	})
	return nil
}
