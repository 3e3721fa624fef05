// Package prune implements the pruning engine from spec §4.2: it
// restores the storage invariant free_space(volume) >= reserved_free_space
// while maximizing retained utility, and repairs cross-store invariant
// violations.
package prune

import (
	"context"
	"sort"
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
	"github.com/adamryczkowski/cachemanager/internal/cachemetrics"
	"github.com/adamryczkowski/cachemanager/internal/logging"
	"github.com/adamryczkowski/cachemanager/internal/metastore"
	"github.com/adamryczkowski/cachemanager/internal/objstore"
	"github.com/adamryczkowski/cachemanager/internal/utility"
)

// Result summarizes what a prune run did, useful for callers and tests.
type Result struct {
	Repaired int
	Orphaned int
	Evicted  int
	Errors   []error
}

// Clock abstracts time.Now so tests can pass a fixed instant; production
// callers pass time.Now.
type Clock func() time.Time

// Engine ties a metadata store and object store together for pruning.
type Engine struct {
	Meta    metastore.Store
	Objects objstore.Store
	Metrics *cachemetrics.Collector
	Clock   Clock
}

// Run executes the repair, orphan-sweep, ranking, eviction and
// history-compaction passes described in spec §4.2, in order.
func (e *Engine) Run(ctx context.Context, cfg cacheitem.Config, removeHistory, verbose bool) (Result, error) {
	var res Result
	now := e.clockNow()

	items, err := e.Meta.IterResident()
	if err != nil {
		return res, err
	}

	// 1. Repair pass.
	resident := items[:0]
	for _, item := range items {
		exists, err := e.Objects.Exists(item.StorageKey)
		if err != nil {
			res.Errors = append(res.Errors, err)
			resident = append(resident, item)
			continue
		}
		if !exists {
			if err := e.Meta.MarkNonResident(item.ItemKey); err != nil {
				res.Errors = append(res.Errors, err)
				resident = append(resident, item)
				continue
			}
			res.Repaired++
			e.Metrics.Repair()
			e.logf(verbose, logging.ActionRepair, item.ItemKey, "blob missing, marked non-resident")
			continue
		}
		size, ok, err := e.Objects.Size(item.StorageKey)
		if err != nil {
			res.Errors = append(res.Errors, err)
			resident = append(resident, item)
			continue
		}
		if ok && size != item.SizeBytes {
			item.SizeBytes = size
			item.InvalidateUtility()
			if err := e.Meta.Upsert(item); err != nil {
				res.Errors = append(res.Errors, err)
			}
		}
		resident = append(resident, item)
	}
	items = resident

	// 2. Orphan sweep.
	claimed := make(map[cachekey.StorageKey]bool, len(items))
	for _, item := range items {
		claimed[item.StorageKey] = true
	}
	keys, err := e.Objects.IterKeys()
	if err != nil {
		return res, err
	}
	for _, key := range keys {
		if claimed[key] {
			continue
		}
		if err := e.Objects.Delete(key); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Orphaned++
		e.Metrics.Orphan()
		e.logf(verbose, logging.ActionOrphan, cachekey.ItemKey{}, "deleted orphan blob "+string(key))
	}

	// 3. Ranking: compute utility for every resident item.
	utils := make(map[cachekey.ItemKey]float64, len(items))
	for _, item := range items {
		u := utility.Utility(item, cfg, now)
		utils[item.ItemKey] = u
		item.LastUtility = u
		item.UtilityValid = true
		e.Metrics.ObserveUtility(u)
	}

	// 4. Unconditional eviction: utility < min_utility_to_keep.
	var survivors []*cacheitem.CacheItem
	for _, item := range items {
		if utils[item.ItemKey] < cfg.MinUtilityToKeep {
			if err := e.evict(item); err != nil {
				res.Errors = append(res.Errors, err)
				survivors = append(survivors, item)
				continue
			}
			res.Evicted++
			e.Metrics.Eviction("threshold")
			e.logEviction(verbose, item.ItemKey, utils[item.ItemKey], "evicted: utility below threshold")
			continue
		}
		survivors = append(survivors, item)
	}
	items = survivors

	// 5. Space-driven eviction: sort ascending by utility (with
	// tie-break), evict from the front until free space satisfied.
	sort.Slice(items, func(i, j int) bool {
		return utility.Less(items[i], utils[items[i].ItemKey], items[j], utils[items[j].ItemKey])
	})

	free, err := e.Objects.FreeSpace()
	if err != nil {
		return res, err
	}
	i := 0
	for int64(free) < cfg.ReservedFreeSpace && i < len(items) {
		item := items[i]
		i++
		if err := e.evict(item); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Evicted++
		e.Metrics.Eviction("space")
		e.logEviction(verbose, item.ItemKey, utils[item.ItemKey], "evicted: reclaiming space")
		free, err = e.Objects.FreeSpace()
		if err != nil {
			return res, err
		}
	}

	// 6. History compaction.
	if removeHistory {
		if err := e.Meta.ClearAccessLogs(); err != nil {
			res.Errors = append(res.Errors, err)
		}
	}

	return res, nil
}

// evict deletes item's blob then marks it non-resident, in that order
// (spec §4.2 "Eviction of an item"). If blob deletion fails the item
// remains resident and the error is returned without marking non-resident.
func (e *Engine) evict(item *cacheitem.CacheItem) error {
	if err := e.Objects.Delete(item.StorageKey); err != nil {
		return err
	}
	return e.Meta.MarkNonResident(item.ItemKey)
}

func (e *Engine) clockNow() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Engine) logf(verbose bool, action string, key cachekey.ItemKey, msg string) {
	if !verbose {
		return
	}
	fields := map[string]interface{}{"item_key": key.String()}
	logging.Info(nil, logging.ComponentPrune, action, msg, fields)
}

// logEviction is logf plus the utility score that justified the decision,
// so a verbose prune run shows not just which items went but why they
// ranked below the ones that survived.
func (e *Engine) logEviction(verbose bool, key cachekey.ItemKey, u float64, msg string) {
	if !verbose {
		return
	}
	fields := map[string]interface{}{"item_key": key.String(), "utility": u}
	logging.Info(nil, logging.ComponentPrune, logging.ActionEvict, msg, fields)
}
