// Package metastore defines the Metadata Store interface (spec §6.1) and
// two reference implementations: an in-memory store for tests and
// ephemeral use, and a file-backed store for durable single-process use.
package metastore

import (
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

// Store is the durable record of every item the cache has ever seen,
// present or evicted, plus configuration (spec §6.1).
type Store interface {
	// Get returns the CacheItem for key, or (nil, false) if never seen.
	Get(key cachekey.ItemKey) (*cacheitem.CacheItem, bool, error)
	// Upsert atomically replaces the record for item.ItemKey.
	Upsert(item *cacheitem.CacheItem) error
	// MarkNonResident clears storage_key and zeroes size_bytes for key.
	MarkNonResident(key cachekey.ItemKey) error
	// IterResident returns a consistent snapshot of all resident items.
	IterResident() ([]*cacheitem.CacheItem, error)
	// AppendAccess records an access timestamp for key.
	AppendAccess(key cachekey.ItemKey, at time.Time) error
	// ClearAccessLogs clears the access log of every item, resident or not.
	ClearAccessLogs() error
	// Delete removes the metadata record for key entirely.
	Delete(key cachekey.ItemKey) error
	// LoadConfig returns the persisted CacheConfig, if any.
	LoadConfig() (cacheitem.Config, bool, error)
	// StoreConfig persists cfg as the current CacheConfig.
	StoreConfig(cfg cacheitem.Config) error
}
