package metastore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

// FileStore is a durable Store backed by one gob-encoded record per item
// under dir, plus a config.yaml blob, grounded on
// internal/persistence/snapshot.go's atomic temp-file-then-rename writer.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore opens (creating if needed) a file-backed metadata store
// rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "NewFileStore", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) itemPath(key cachekey.ItemKey) string {
	return filepath.Join(s.dir, key.String()+".item")
}

func (s *FileStore) configPath() string {
	return filepath.Join(s.dir, "config.yaml")
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so a crash mid-write never leaves a truncated
// record behind.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *FileStore) readItem(key cachekey.ItemKey) (*cacheitem.CacheItem, bool, error) {
	data, err := os.ReadFile(s.itemPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, cacheerr.New(cacheerr.KindIOFailure, "FileStore.readItem", err)
	}
	item := &cacheitem.CacheItem{}
	if err := item.UnmarshalBinary(data); err != nil {
		return nil, false, cacheerr.New(cacheerr.KindIOFailure, "FileStore.readItem", err)
	}
	return item, true, nil
}

func (s *FileStore) writeItem(item *cacheitem.CacheItem) error {
	data, err := item.MarshalBinary()
	if err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "FileStore.writeItem", err)
	}
	if err := writeAtomic(s.itemPath(item.ItemKey), data); err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "FileStore.writeItem", err)
	}
	return nil
}

func (s *FileStore) Get(key cachekey.ItemKey) (*cacheitem.CacheItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readItem(key)
}

func (s *FileStore) Upsert(item *cacheitem.CacheItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeItem(item)
}

func (s *FileStore) MarkNonResident(key cachekey.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok, err := s.readItem(key)
	if err != nil {
		return err
	}
	if !ok {
		return cacheerr.New(cacheerr.KindNotFound, "FileStore.MarkNonResident", nil)
	}
	item.MarkNonResident()
	return s.writeItem(item)
}

func (s *FileStore) IterResident() ([]*cacheitem.CacheItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "FileStore.IterResident", err)
	}
	var out []*cacheitem.CacheItem
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".item" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, ent.Name()))
		if err != nil {
			continue
		}
		item := &cacheitem.CacheItem{}
		if err := item.UnmarshalBinary(data); err != nil {
			continue
		}
		if item.Resident() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *FileStore) AppendAccess(key cachekey.ItemKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok, err := s.readItem(key)
	if err != nil {
		return err
	}
	if !ok {
		return cacheerr.New(cacheerr.KindNotFound, "FileStore.AppendAccess", nil)
	}
	item.RecordAccess(at)
	return s.writeItem(item)
}

func (s *FileStore) ClearAccessLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "FileStore.ClearAccessLogs", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".item" {
			continue
		}
		path := filepath.Join(s.dir, ent.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		item := &cacheitem.CacheItem{}
		if err := item.UnmarshalBinary(data); err != nil {
			continue
		}
		item.ClearAccessLog()
		if err := s.writeItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) Delete(key cachekey.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.itemPath(key)); err != nil && !os.IsNotExist(err) {
		return cacheerr.New(cacheerr.KindIOFailure, "FileStore.Delete", err)
	}
	return nil
}

// fileConfig mirrors cacheitem.Config with YAML-friendly field names.
type fileConfig struct {
	ReservedFreeSpace                 int64   `yaml:"reserved_free_space"`
	CostOfMinuteComputeRelToCostOf1GB float64 `yaml:"cost_of_minute_compute_rel_to_cost_of_1gb"`
	HalfLifeOfAccessesSeconds          float64 `yaml:"half_life_of_accesses_seconds"`
	MinUtilityToKeep                   float64 `yaml:"min_utility_to_keep"`
}

func (s *FileStore) LoadConfig() (cacheitem.Config, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cacheitem.Config{}, false, nil
		}
		return cacheitem.Config{}, false, cacheerr.New(cacheerr.KindIOFailure, "FileStore.LoadConfig", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cacheitem.Config{}, false, cacheerr.New(cacheerr.KindIOFailure, "FileStore.LoadConfig", err)
	}
	cfg := cacheitem.Config{
		ReservedFreeSpace:                 fc.ReservedFreeSpace,
		CostOfMinuteComputeRelToCostOf1GB: fc.CostOfMinuteComputeRelToCostOf1GB,
		HalfLifeOfAccesses:                time.Duration(fc.HalfLifeOfAccessesSeconds * float64(time.Second)),
		MinUtilityToKeep:                  fc.MinUtilityToKeep,
	}
	return cfg, true, nil
}

func (s *FileStore) StoreConfig(cfg cacheitem.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc := fileConfig{
		ReservedFreeSpace:                 cfg.ReservedFreeSpace,
		CostOfMinuteComputeRelToCostOf1GB: cfg.CostOfMinuteComputeRelToCostOf1GB,
		HalfLifeOfAccessesSeconds:          cfg.HalfLifeOfAccesses.Seconds(),
		MinUtilityToKeep:                   cfg.MinUtilityToKeep,
	}
	data, err := yaml.Marshal(&fc)
	if err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "FileStore.StoreConfig", err)
	}
	if err := writeAtomic(s.configPath(), data); err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "FileStore.StoreConfig", err)
	}
	return nil
}
