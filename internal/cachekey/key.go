// Package cachekey defines the opaque identity types used throughout the
// cache (ItemKey, StorageKey) and a reference storage-key generator.
//
// Hash construction for arbitrary argument graphs is explicitly delegated
// to callers (spec §1): producers are expected to derive their own
// ItemKey from their inputs. The helper here (Hash) is a
// convenience content-hash collaborator for callers who don't need
// anything fancier than "hash these bytes", not a mandated construction.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ItemKey is an opaque, comparable, hex-printable content digest. It is
// the cache's primary identity for a computation's result.
type ItemKey [sha256.Size]byte

// String renders the key as lowercase hex.
func (k ItemKey) String() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether the key is the zero value (never a valid key
// produced by Hash, used as an "absent" sentinel internally).
func (k ItemKey) IsZero() bool { return k == ItemKey{} }

// Hash derives an ItemKey from arbitrary bytes using SHA-256. It is a
// reference content-hash collaborator; producers with richer identity
// needs (argument graphs, versioned schemas) should derive their own key
// and are never required to route through this function.
func Hash(data []byte) ItemKey {
	return ItemKey(sha256.Sum256(data))
}

// ParseItemKey decodes a hex string produced by ItemKey.String.
func ParseItemKey(s string) (ItemKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ItemKey{}, fmt.Errorf("cachekey: invalid item key %q: %w", s, err)
	}
	if len(b) != sha256.Size {
		return ItemKey{}, fmt.Errorf("cachekey: item key %q has wrong length %d", s, len(b))
	}
	var k ItemKey
	copy(k[:], b)
	return k, nil
}

// StorageKey is an opaque handle understood by the object store, commonly
// a relative path. It is one-to-one with a resident blob.
type StorageKey string

// String renders the storage key (already a string, but satisfies
// fmt.Stringer for symmetry with ItemKey).
func (k StorageKey) String() string { return string(k) }

// Generator derives a StorageKey from an ItemKey when a producer does not
// propose one of its own (spec §6.4).
type Generator interface {
	Derive(key ItemKey) StorageKey
}

// PrefixKeyGen is the reference storage-key generator from spec §6.4:
// concatenate a configurable prefix, the hex of the item key, and an
// extension. It is deterministic, collision-resistant (inherits the
// collision resistance of the underlying ItemKey), and bijective with
// ItemKey since hex(item_key) alone already determines the output.
type PrefixKeyGen struct {
	Prefix    string
	Extension string
}

// NewPrefixKeyGen builds a generator with the given prefix (e.g. "objects/")
// and extension (e.g. ".bin", may be empty).
func NewPrefixKeyGen(prefix, extension string) PrefixKeyGen {
	return PrefixKeyGen{Prefix: prefix, Extension: extension}
}

// Derive implements Generator.
func (g PrefixKeyGen) Derive(key ItemKey) StorageKey {
	return StorageKey(g.Prefix + key.String() + g.Extension)
}

// FastFingerprint returns a non-cryptographic 64-bit fingerprint of data,
// useful for sharding or bucketing storage keys across directories
// without paying SHA-256's cost again. It must never be used as an
// ItemKey or StorageKey on its own: it is not collision-resistant enough
// for cross-process content addressing.
func FastFingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
