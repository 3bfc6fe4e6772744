package blob

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type memoryEntry struct {
	blob      Blob
	expiresAt time.Time
}

// MemoryStore keeps blobs in a bounded LRU inside the process. Expired
// entries are dropped when touched and swept on Put at most once per sweep
// interval.
type MemoryStore struct {
	cache  *expirable.LRU[string, memoryEntry]
	logger *zap.Logger
	now    func() time.Time
	maxTTL time.Duration

	mu        sync.Mutex
	lastSweep time.Time
	sweepGap  time.Duration
}

// NewMemoryStore creates an in-process store. maxEntries <= 0 means unbounded;
// maxTTL caps the lifetime of every entry.
func NewMemoryStore(maxEntries int, maxTTL time.Duration, logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{
		logger:   logger,
		now:      time.Now,
		maxTTL:   maxTTL,
		sweepGap: time.Minute,
	}
	if maxTTL > 0 && maxTTL < s.sweepGap {
		s.sweepGap = maxTTL
	}
	// A zero LRU TTL keeps the cache from starting its own cleanup goroutine,
	// which nothing could stop. Expiry is tracked per entry instead.
	s.cache = expirable.NewLRU[string, memoryEntry](maxEntries, s.onEvict, 0)
	return s
}

func (s *MemoryStore) onEvict(token string, _ memoryEntry) {
	s.logger.Debug("Blob released", zap.String("token", token))
}

// Put stores b under a fresh token
func (s *MemoryStore) Put(ctx context.Context, b Blob, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.maxTTL > 0 && (ttl <= 0 || ttl > s.maxTTL) {
		ttl = s.maxTTL
	}

	now := s.now()
	s.sweep(now)

	token := newToken()
	s.cache.Add(token, memoryEntry{blob: b, expiresAt: now.Add(ttl)})
	return token, nil
}

// Take returns the blob and removes it. Concurrent takers of one token see
// exactly one success.
func (s *MemoryStore) Take(ctx context.Context, token string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	entry, ok := s.cache.Get(token)
	if !ok {
		return Blob{}, ErrNotFound
	}
	if !s.cache.Remove(token) {
		return Blob{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		return Blob{}, ErrNotFound
	}
	return entry.blob, nil
}

// Revoke removes the blob
func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, ok := s.cache.Get(token)
	if !ok {
		return ErrNotFound
	}
	if !s.cache.Remove(token) {
		return ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		return ErrNotFound
	}
	return nil
}

// Sweep removes every expired entry and returns how many were dropped
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	s.lastSweep = now
	s.mu.Unlock()

	return s.removeExpired(now)
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	due := now.Sub(s.lastSweep) >= s.sweepGap
	if due {
		s.lastSweep = now
	}
	s.mu.Unlock()

	if due {
		s.removeExpired(now)
	}
}

func (s *MemoryStore) removeExpired(now time.Time) int {
	removed := 0
	for _, token := range s.cache.Keys() {
		entry, ok := s.cache.Peek(token)
		if ok && !now.Before(entry.expiresAt) && s.cache.Remove(token) {
			removed++
		}
	}
	return removed
}

// Len returns the number of held entries, including expired ones not yet swept
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Close drops every entry
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
