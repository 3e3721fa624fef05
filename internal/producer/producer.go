// Package producer defines the Item Producer interface (spec §6.3): the
// caller-supplied bundle of identity, computation and codec for one
// cacheable computation.
package producer

import "github.com/adamryczkowski/cachemanager/internal/cachekey"

// Producer bundles everything the coordinator needs to resolve a single
// get-or-compute call, without ever handing the coordinator a raw object
// it wouldn't know how to persist (spec §9, "Producer as a bundle").
type Producer interface {
	// ItemKey returns the identity of the computation this producer
	// resolves.
	ItemKey() cachekey.ItemKey
	// Compute performs the (possibly expensive) pure computation.
	Compute() (any, error)
	// Serialize converts a computed object to bytes for storage.
	Serialize(obj any) ([]byte, error)
	// Deserialize reconstructs an object from stored bytes.
	Deserialize(data []byte) (any, error)
	// ProposeStorageKey optionally proposes a storage key for the
	// resulting blob. Returning ("", false) defers to the coordinator's
	// storage-key generator.
	ProposeStorageKey() (cachekey.StorageKey, bool)
	// Describe returns a short human label for the item (spec §3
	// pretty_description).
	Describe() string
}

// FuncProducer is a generic functional adapter so callers don't have to
// hand-write a struct per computation, grounded on the teacher's
// capability-struct configuration style (BasicStoreConfig, StoreConfig).
type FuncProducer struct {
	Key             cachekey.ItemKey
	ComputeFunc     func() (any, error)
	SerializeFunc   func(any) ([]byte, error)
	DeserializeFunc func([]byte) (any, error)
	StorageKey      cachekey.StorageKey // empty means "no proposal"
	Label           string
}

var _ Producer = (*FuncProducer)(nil)

func (f *FuncProducer) ItemKey() cachekey.ItemKey { return f.Key }

func (f *FuncProducer) Compute() (any, error) { return f.ComputeFunc() }

func (f *FuncProducer) Serialize(obj any) ([]byte, error) { return f.SerializeFunc(obj) }

func (f *FuncProducer) Deserialize(data []byte) (any, error) { return f.DeserializeFunc(data) }

func (f *FuncProducer) ProposeStorageKey() (cachekey.StorageKey, bool) {
	if f.StorageKey == "" {
		return "", false
	}
	return f.StorageKey, true
}

func (f *FuncProducer) Describe() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key.String()
}
