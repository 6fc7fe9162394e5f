// Package cache provides the in-memory pending-link registry. Entries are
// single-use correlation tokens shared across concurrent requests, so the
// redeem path is the one place in the system that needs a hard atomicity
// guarantee.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/rewardly/rewardly/domain"
)

// evictionGrace keeps expired entries around briefly so a late redeem can be
// reported as expired rather than never-existed. After the grace window the
// two cases are indistinguishable, which the LinkStore contract allows.
const evictionGrace = 5 * time.Minute

// MemoryLinkStore implements domain.LinkStore using ttlcache.
type MemoryLinkStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *domain.PendingLink]
}

// NewMemoryLinkStore creates an in-memory link store with automatic cleanup.
func NewMemoryLinkStore() *MemoryLinkStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.PendingLink](),
	)
	go cache.Start()

	return &MemoryLinkStore{cache: cache}
}

// Create implements domain.LinkStore.
func (s *MemoryLinkStore) Create(_ context.Context, link *domain.PendingLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(link.Token, link, time.Until(link.ExpiresAt)+evictionGrace)
	return nil
}

// Redeem implements domain.LinkStore. Lookup and delete happen under one
// lock, so two concurrent redemptions of the same token cannot both succeed.
func (s *MemoryLinkStore) Redeem(_ context.Context, token, expectedPlatform string) (*domain.PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(token)
	if item == nil {
		return nil, domain.ErrLinkNotFound
	}
	link := item.Value()
	if link.Expired(time.Now()) {
		s.cache.Delete(token)
		return nil, domain.ErrLinkExpired
	}
	if expectedPlatform != "" && link.Platform != expectedPlatform {
		return nil, domain.ErrPlatformMismatch
	}
	s.cache.Delete(token)
	return link, nil
}

// Peek implements domain.LinkStore. It never consumes the entry.
func (s *MemoryLinkStore) Peek(_ context.Context, token string) (*domain.PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(token)
	if item == nil {
		return nil, domain.ErrLinkNotFound
	}
	link := item.Value()
	if link.Expired(time.Now()) {
		s.cache.Delete(token)
		return nil, domain.ErrLinkExpired
	}
	return link, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryLinkStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ domain.LinkStore = (*MemoryLinkStore)(nil)
