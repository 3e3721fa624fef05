// Package coordinator implements the cache coordinator (spec §4.3): the
// public surface that links a metadata store, an object store and
// user-supplied producers into a coherent get-or-compute protocol with
// correct failure handling.
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
	"github.com/adamryczkowski/cachemanager/internal/cachemetrics"
	"github.com/adamryczkowski/cachemanager/internal/logging"
	"github.com/adamryczkowski/cachemanager/internal/metastore"
	"github.com/adamryczkowski/cachemanager/internal/objstore"
	"github.com/adamryczkowski/cachemanager/internal/producer"
	"github.com/adamryczkowski/cachemanager/internal/prune"
)

// Clock abstracts time.Now so tests can control elapsed time.
type Clock func() time.Time

// Coordinator is the cache's public surface. Calls are serialized through
// a single mutex, mirroring the teacher's BasicStore guarding items,
// allocatedPtrs and stats together under one lock (spec §5: single-
// threaded cooperative model within one process).
type Coordinator struct {
	Meta    metastore.Store
	Objects objstore.Store
	KeyGen  cachekey.Generator
	Metrics *cachemetrics.Collector
	Clock   Clock

	cfg cacheitem.Config
	mu  sync.Mutex
}

// New builds a Coordinator, loading persisted config from meta (or
// falling back to cacheitem.DefaultConfig and persisting it) the way
// spec §9 describes config being "loaded once per coordinator
// construction".
func New(meta metastore.Store, objects objstore.Store, keygen cachekey.Generator, metrics *cachemetrics.Collector) (*Coordinator, error) {
	cfg, ok, err := meta.LoadConfig()
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "coordinator.New", err)
	}
	if !ok {
		cfg = cacheitem.DefaultConfig()
		if err := meta.StoreConfig(cfg); err != nil {
			return nil, cacheerr.New(cacheerr.KindIOFailure, "coordinator.New", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Coordinator{Meta: meta, Objects: objects, KeyGen: keygen, Metrics: metrics, cfg: cfg}, nil
}

// Config returns the coordinator's current configuration.
func (c *Coordinator) Config() cacheitem.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig replaces and persists the coordinator's configuration.
// Config changes do not retroactively alter stored items' recorded
// costs (spec §9).
func (c *Coordinator) SetConfig(cfg cacheitem.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Meta.StoreConfig(cfg); err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "Coordinator.SetConfig", err)
	}
	c.cfg = cfg
	return nil
}

func (c *Coordinator) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// GetObject implements spec §4.3 get_object: resident hit reads+
// deserializes the blob and records an access; a miss (or a hit whose
// blob has gone missing or corrupt) invokes the producer's compute,
// serializes, stores and records metadata, then returns the freshly
// computed object.
func (c *Coordinator) GetObject(p producer.Producer) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.ItemKey()
	item, ok, err := c.Meta.Get(key)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "GetObject", err)
	}

	if ok && item.Resident() {
		obj, err := c.tryRead(item, p)
		if err == nil {
			if err := c.Meta.AppendAccess(key, c.now()); err != nil {
				return nil, cacheerr.New(cacheerr.KindIOFailure, "GetObject", err)
			}
			c.Metrics.Hit()
			return obj, nil
		}
		// Corrupt or missing blob: demote to Evicted, fall through to
		// recompute, bounded to one retry per call (spec §4.3, §7).
		if err := c.Meta.MarkNonResident(key); err != nil {
			return nil, cacheerr.New(cacheerr.KindIOFailure, "GetObject", err)
		}
		// Drop the unreadable blob so the recompute can be written back
		// under the same storage key (Write forbids overwrite).
		_ = c.Objects.Delete(item.StorageKey)
		logging.Warn(nil, logging.ComponentCoordinator, logging.ActionRetry,
			"resident blob unreadable, recomputing", map[string]interface{}{"item_key": key.String()})
	}

	c.Metrics.Miss()
	return c.computeAndStore(p, item, ok)
}

// tryRead reads and deserializes the blob for a resident item. A read
// failure or a deserialize failure both count as "blob read failed"
// under spec §4.3 step 4 and are reported as cacheerr.KindCorruptBlob so
// the caller can recompute.
func (c *Coordinator) tryRead(item *cacheitem.CacheItem, p producer.Producer) (any, error) {
	data, err := c.Objects.Read(item.StorageKey)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindCorruptBlob, "tryRead", err)
	}
	obj, err := p.Deserialize(data)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindCorruptBlob, "tryRead", err)
	}
	return obj, nil
}

// computeAndStore runs the producer's compute, serializes and writes the
// result, and upserts metadata. existing/hadExisting carry over a prior
// (now non-resident) record so created_at and access history survive a
// recompute of a previously evicted item.
func (c *Coordinator) computeAndStore(p producer.Producer, existing *cacheitem.CacheItem, hadExisting bool) (any, error) {
	start := c.now()
	obj, err := p.Compute()
	duration := c.now().Sub(start)
	if err != nil {
		c.Metrics.Compute("producer_failed", duration)
		return nil, cacheerr.New(cacheerr.KindProducerFailed, "computeAndStore", err)
	}

	data, err := p.Serialize(obj)
	if err != nil {
		c.Metrics.Compute("producer_failed", duration)
		return nil, cacheerr.New(cacheerr.KindProducerFailed, "computeAndStore", err)
	}

	storageKey, proposed := p.ProposeStorageKey()
	if !proposed {
		storageKey = c.KeyGen.Derive(p.ItemKey())
	}

	size, err := c.Objects.Write(storageKey, data)
	if err != nil {
		c.Metrics.Compute("producer_failed", duration)
		return nil, cacheerr.New(cacheerr.KindIOFailure, "computeAndStore", err)
	}

	now := c.now()
	item := &cacheitem.CacheItem{
		ItemKey:     p.ItemKey(),
		StorageKey:  storageKey,
		SizeBytes:   size,
		ComputeCost: duration,
		CreatedAt:   now,
		Pretty:      p.Describe(),
	}
	if hadExisting && existing != nil {
		item.CreatedAt = existing.CreatedAt
		item.AccessLog = existing.AccessLog
	}
	item.RecordAccess(now)

	if err := c.Meta.Upsert(item); err != nil {
		// Metadata write failed after a successful blob write: delete
		// the orphan blob before surfacing the error (spec §4.3,
		// "no orphan retained on the happy path").
		_ = c.Objects.Delete(storageKey)
		return nil, cacheerr.New(cacheerr.KindIOFailure, "computeAndStore", err)
	}

	c.Metrics.Compute("success", duration)
	return obj, nil
}

// GetObjectInfo is a pure metadata read; it does not record an access
// (spec §4.3 get_object_info).
func (c *Coordinator) GetObjectInfo(key cachekey.ItemKey) (*cacheitem.CacheItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok, err := c.Meta.Get(key)
	if err != nil {
		return nil, false, cacheerr.New(cacheerr.KindIOFailure, "GetObjectInfo", err)
	}
	return item, ok, nil
}

// AddItemUnconditionally forces recomputation and storage even if the
// item is resident, used for refresh (spec §4.3). It preserves
// created_at (spec §9 Open Question, resolved: preserve) and atomically
// replaces the blob: write to a new storage key, update metadata to
// point there, then delete the old blob.
func (c *Coordinator) AddItemUnconditionally(p producer.Producer) (*cacheitem.CacheItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.ItemKey()
	existing, hadExisting, err := c.Meta.Get(key)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "AddItemUnconditionally", err)
	}

	start := c.now()
	obj, err := p.Compute()
	duration := c.now().Sub(start)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindProducerFailed, "AddItemUnconditionally", err)
	}
	data, err := p.Serialize(obj)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindProducerFailed, "AddItemUnconditionally", err)
	}

	newKey, proposed := p.ProposeStorageKey()
	if !proposed {
		newKey = c.KeyGen.Derive(key)
	}
	if hadExisting && existing.Resident() && newKey == existing.StorageKey {
		// Proposed key collides with the blob we're about to replace;
		// disambiguate so Write's overwrite-forbidden rule doesn't
		// reject our own refresh.
		newKey = cachekey.StorageKey(fmt.Sprintf("%s.refresh-%d", newKey, c.now().UnixNano()))
	}

	size, err := c.Objects.Write(newKey, data)
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "AddItemUnconditionally", err)
	}

	now := c.now()
	item := &cacheitem.CacheItem{
		ItemKey:     key,
		StorageKey:  newKey,
		SizeBytes:   size,
		ComputeCost: duration,
		CreatedAt:   now,
		Pretty:      p.Describe(),
	}
	if hadExisting {
		item.CreatedAt = existing.CreatedAt
		item.AccessLog = existing.AccessLog
	}
	item.RecordAccess(now)

	if err := c.Meta.Upsert(item); err != nil {
		_ = c.Objects.Delete(newKey)
		return nil, cacheerr.New(cacheerr.KindIOFailure, "AddItemUnconditionally", err)
	}

	if hadExisting && existing.Resident() && existing.StorageKey != newKey {
		_ = c.Objects.Delete(existing.StorageKey)
	}

	return item, nil
}

// Forget deletes the blob (if resident) and removes the metadata record
// entirely (spec §4.3 forget).
func (c *Coordinator) Forget(key cachekey.ItemKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok, err := c.Meta.Get(key)
	if err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "Forget", err)
	}
	if ok && item.Resident() {
		if err := c.Objects.Delete(item.StorageKey); err != nil {
			return cacheerr.New(cacheerr.KindIOFailure, "Forget", err)
		}
	}
	if err := c.Meta.Delete(key); err != nil {
		return cacheerr.New(cacheerr.KindIOFailure, "Forget", err)
	}
	return nil
}

// PruneCache delegates to the pruning engine (spec §4.2), using the
// coordinator's current config, object store and metadata store.
func (c *Coordinator) PruneCache(removeHistory, verbose bool) (prune.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	engine := &prune.Engine{
		Meta:    c.Meta,
		Objects: c.Objects,
		Metrics: c.Metrics,
		Clock:   prune.Clock(c.now),
	}
	return engine.Run(nil, c.cfg, removeHistory, verbose)
}
