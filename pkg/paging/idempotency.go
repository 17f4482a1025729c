package paging

import (
	"context"
	"sync"
	"time"

	"github.com/wikimedia/klaxon/pkg/storage"
)

// DefaultIdempotencyTTL is how long a dispatched key suppresses resubmission.
const DefaultIdempotencyTTL = 24 * time.Hour

// Store tracks idempotency keys so a client-side retry of the same
// submission never produces two pages.
type Store interface {
	// Reserve claims the key for dispatch. It returns false when the key
	// was already claimed by an earlier request.
	Reserve(ctx context.Context, key string) (bool, error)

	// RecordResult stores the terminal result for the key, replacing any
	// earlier one.
	RecordResult(ctx context.Context, key string, res Result) error

	// LookupResult returns the recorded result for the key, or nil when
	// none was recorded yet (reservation still in flight).
	LookupResult(ctx context.Context, key string) (*Result, error)
}

// MemoryStore is the in-process Store used when Redis is disabled. Keys
// expire after the TTL; expiry is checked lazily.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	result    *Result
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory idempotency store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]*memoryEntry),
	}
}

// Reserve implements Store.
func (s *MemoryStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	s.entries[key] = &memoryEntry{expiresAt: now.Add(s.ttl)}
	return true, nil
}

// RecordResult implements Store.
func (s *MemoryStore) RecordResult(_ context.Context, key string, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{result: &res, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// LookupResult implements Store.
func (s *MemoryStore) LookupResult(_ context.Context, key string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.result, nil
}

// RedisStore is the durable Store: reservations survive process restarts,
// so a resubmitted page is still suppressed after a redeploy.
type RedisStore struct {
	client *storage.RedisClient
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed idempotency store.
func NewRedisStore(client *storage.RedisClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Reserve implements Store.
func (s *RedisStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.client.Reserve(ctx, "page", key, s.ttl)
}

// RecordResult implements Store.
func (s *RedisStore) RecordResult(ctx context.Context, key string, res Result) error {
	return s.client.SetJSON(ctx, resultKey(key), res, s.ttl)
}

// LookupResult implements Store.
func (s *RedisStore) LookupResult(ctx context.Context, key string) (*Result, error) {
	var res Result
	found, err := s.client.GetJSON(ctx, resultKey(key), &res)
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

func resultKey(key string) string {
	return "page:result:" + key
}
