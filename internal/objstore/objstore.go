// Package objstore defines the Object Store interface (spec §6.2) and a
// local-volume reference implementation.
package objstore

import "github.com/adamryczkowski/cachemanager/internal/cachekey"

// Store is a content-indexed blob repository addressed by a StorageKey
// (spec §6.2).
type Store interface {
	// Write atomically stores data at key and returns its size.
	// Overwriting an existing key is forbidden.
	Write(key cachekey.StorageKey, data []byte) (uint64, error)
	// Read returns the bytes stored at key.
	Read(key cachekey.StorageKey) ([]byte, error)
	// Delete removes the blob at key. Idempotent: deleting an absent key
	// is not an error.
	Delete(key cachekey.StorageKey) error
	// Exists reports whether a blob is present at key.
	Exists(key cachekey.StorageKey) (bool, error)
	// Size returns the blob's size, or (0, false) if absent.
	Size(key cachekey.StorageKey) (uint64, bool, error)
	// IterKeys returns every storage key currently present.
	IterKeys() ([]cachekey.StorageKey, error)
	// FreeSpace returns the advisory free space of the backing volume.
	FreeSpace() (uint64, error)
}
