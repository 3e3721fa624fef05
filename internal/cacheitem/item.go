// Package cacheitem defines the CacheItem metadata record and CacheConfig,
// the durable state the rest of the module reasons about (spec §3, §6.5).
package cacheitem

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

// maxAccessLogEntries bounds the access log so it cannot grow without
// bound; the decay window in the utility model makes entries older than
// a handful of half-lives negligible anyway (spec §9, "Access history as
// lazy sequence").
const maxAccessLogEntries = 256

// CacheItem is the metadata record for a key the cache has ever observed,
// resident or not (spec §3).
type CacheItem struct {
	ItemKey      cachekey.ItemKey
	StorageKey   cachekey.StorageKey // empty StorageKey means absent/non-resident
	SizeBytes    uint64
	ComputeCost  time.Duration
	CreatedAt    time.Time
	AccessLog    []time.Time
	LastUtility  float64
	UtilityValid bool
	Pretty       string
}

// Resident reports whether this item currently has a blob in the object
// store (spec §3: "absent ⇒ not currently resident").
func (c *CacheItem) Resident() bool {
	return c.StorageKey != ""
}

// RecordAccess appends now to the access log, enforcing the monotone
// invariant and the length cap (spec §3 "Access log monotone", §9).
func (c *CacheItem) RecordAccess(now time.Time) {
	if n := len(c.AccessLog); n > 0 && now.Before(c.AccessLog[n-1]) {
		now = c.AccessLog[n-1]
	}
	c.AccessLog = append(c.AccessLog, now)
	if len(c.AccessLog) > maxAccessLogEntries {
		c.AccessLog = c.AccessLog[len(c.AccessLog)-maxAccessLogEntries:]
	}
	c.InvalidateUtility()
}

// ClearAccessLog empties the access log, used by prune's history
// compaction (spec §4.2 step 6).
func (c *CacheItem) ClearAccessLog() {
	c.AccessLog = nil
	c.InvalidateUtility()
}

// InvalidateUtility marks the cached utility scalar stale; it is
// recomputed lazily by the utility model on next use.
func (c *CacheItem) InvalidateUtility() {
	c.LastUtility = 0
	c.UtilityValid = false
}

// MarkNonResident clears StorageKey and zeroes SizeBytes (spec §6.1
// mark_non_resident).
func (c *CacheItem) MarkNonResident() {
	c.StorageKey = ""
	c.SizeBytes = 0
	c.InvalidateUtility()
}

// DeepCopy returns a CacheItem whose AccessLog slice does not alias the
// receiver's, so callers reading a metadata-store snapshot cannot mutate
// store-internal state through the returned pointer (spec §9
// "repair-on-prune rather than on-access" implies iter_resident returns
// a consistent snapshot; this is the copy-on-read half of that).
func (c *CacheItem) DeepCopy() *CacheItem {
	cp := *c
	if c.AccessLog != nil {
		cp.AccessLog = make([]time.Time, len(c.AccessLog))
		copy(cp.AccessLog, c.AccessLog)
	}
	return &cp
}

// gobItem mirrors CacheItem with an exported, gob-friendly ItemKey
// representation so FileStore can encode/decode records portably.
type gobItem struct {
	ItemKeyHex   string
	StorageKey   string
	SizeBytes    uint64
	ComputeCost  time.Duration
	CreatedAt    time.Time
	AccessLog    []time.Time
	LastUtility  float64
	UtilityValid bool
	Pretty       string
}

// MarshalBinary implements encoding.BinaryMarshaler via gob, used by the
// file-backed metadata store to persist one record per item.
func (c *CacheItem) MarshalBinary() ([]byte, error) {
	g := gobItem{
		ItemKeyHex:   c.ItemKey.String(),
		StorageKey:   string(c.StorageKey),
		SizeBytes:    c.SizeBytes,
		ComputeCost:  c.ComputeCost,
		CreatedAt:    c.CreatedAt,
		AccessLog:    c.AccessLog,
		LastUtility:  c.LastUtility,
		UtilityValid: c.UtilityValid,
		Pretty:       c.Pretty,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&g); err != nil {
		return nil, fmt.Errorf("cacheitem: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary.
func (c *CacheItem) UnmarshalBinary(data []byte) error {
	var g gobItem
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return fmt.Errorf("cacheitem: unmarshal: %w", err)
	}
	key, err := cachekey.ParseItemKey(g.ItemKeyHex)
	if err != nil {
		return fmt.Errorf("cacheitem: unmarshal: %w", err)
	}
	c.ItemKey = key
	c.StorageKey = cachekey.StorageKey(g.StorageKey)
	c.SizeBytes = g.SizeBytes
	c.ComputeCost = g.ComputeCost
	c.CreatedAt = g.CreatedAt
	c.AccessLog = g.AccessLog
	c.LastUtility = g.LastUtility
	c.UtilityValid = g.UtilityValid
	c.Pretty = g.Pretty
	return nil
}
