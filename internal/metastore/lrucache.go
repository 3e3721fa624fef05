package metastore

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

// CachedStore wraps a durable Store with a bounded in-memory read-through
// cache, so repeated get_object_info / get_object calls against a hot
// set of keys don't round-trip through FileStore's disk I/O on every
// call. Grounded on the teacher's BasicStore, which also layers a
// bounded in-memory structure (its items map plus MemoryPool) in front
// of persistence.
//
// Every mutating call invalidates (rather than updates) the affected
// entry, so CachedStore can never serve a value staler than the last
// write through it.
type CachedStore struct {
	backend Store
	cache   *lru.Cache[cachekey.ItemKey, *cacheitem.CacheItem]
}

// NewCachedStore wraps backend with an LRU of at most capacity entries.
func NewCachedStore(backend Store, capacity int) (*CachedStore, error) {
	c, err := lru.New[cachekey.ItemKey, *cacheitem.CacheItem](capacity)
	if err != nil {
		return nil, err
	}
	return &CachedStore{backend: backend, cache: c}, nil
}

func (s *CachedStore) Get(key cachekey.ItemKey) (*cacheitem.CacheItem, bool, error) {
	if item, ok := s.cache.Get(key); ok {
		return item.DeepCopy(), true, nil
	}
	item, ok, err := s.backend.Get(key)
	if err != nil || !ok {
		return item, ok, err
	}
	s.cache.Add(key, item)
	return item.DeepCopy(), true, nil
}

func (s *CachedStore) Upsert(item *cacheitem.CacheItem) error {
	if err := s.backend.Upsert(item); err != nil {
		return err
	}
	s.cache.Remove(item.ItemKey)
	return nil
}

func (s *CachedStore) MarkNonResident(key cachekey.ItemKey) error {
	if err := s.backend.MarkNonResident(key); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

func (s *CachedStore) IterResident() ([]*cacheitem.CacheItem, error) {
	// Bypasses the cache: a snapshot must reflect every resident item,
	// not just the hot subset currently cached.
	return s.backend.IterResident()
}

func (s *CachedStore) AppendAccess(key cachekey.ItemKey, at time.Time) error {
	if err := s.backend.AppendAccess(key, at); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

func (s *CachedStore) ClearAccessLogs() error {
	if err := s.backend.ClearAccessLogs(); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

func (s *CachedStore) Delete(key cachekey.ItemKey) error {
	if err := s.backend.Delete(key); err != nil {
		return err
	}
	s.cache.Remove(key)
	return nil
}

func (s *CachedStore) LoadConfig() (cacheitem.Config, bool, error) {
	return s.backend.LoadConfig()
}

func (s *CachedStore) StoreConfig(cfg cacheitem.Config) error {
	return s.backend.StoreConfig(cfg)
}

var _ Store = (*CachedStore)(nil)
