package metastore

import (
	"sync"
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

// MemStore is an in-memory Store, protected by a single RWMutex the way
// the teacher's BasicStore guards its items map. Intended for tests and
// ephemeral (non-durable) cache instances.
type MemStore struct {
	mu      sync.RWMutex
	items   map[cachekey.ItemKey]*cacheitem.CacheItem
	cfg     cacheitem.Config
	hasCfg  bool
}

// NewMemStore creates an empty in-memory metadata store.
func NewMemStore() *MemStore {
	return &MemStore{items: make(map[cachekey.ItemKey]*cacheitem.CacheItem)}
}

func (s *MemStore) Get(key cachekey.ItemKey) (*cacheitem.CacheItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return item.DeepCopy(), true, nil
}

func (s *MemStore) Upsert(item *cacheitem.CacheItem) error {
	if item == nil {
		return cacheerr.New(cacheerr.KindOther, "MemStore.Upsert", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ItemKey] = item.DeepCopy()
	return nil
}

func (s *MemStore) MarkNonResident(key cachekey.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return cacheerr.New(cacheerr.KindNotFound, "MemStore.MarkNonResident", nil)
	}
	item.MarkNonResident()
	return nil
}

func (s *MemStore) IterResident() ([]*cacheitem.CacheItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*cacheitem.CacheItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Resident() {
			out = append(out, item.DeepCopy())
		}
	}
	return out, nil
}

func (s *MemStore) AppendAccess(key cachekey.ItemKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return cacheerr.New(cacheerr.KindNotFound, "MemStore.AppendAccess", nil)
	}
	item.RecordAccess(at)
	return nil
}

func (s *MemStore) ClearAccessLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		item.ClearAccessLog()
	}
	return nil
}

func (s *MemStore) Delete(key cachekey.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemStore) LoadConfig() (cacheitem.Config, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.hasCfg, nil
}

func (s *MemStore) StoreConfig(cfg cacheitem.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.hasCfg = true
	return nil
}
