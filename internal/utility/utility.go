// Package utility implements the pure utility model from spec §4.1: a
// total order over CacheItems ranking them by desirability of retention.
package utility

import (
	"math"
	"time"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
)

const (
	bytesPerGB = 1 << 30
	// decayWindowHalfLives is N in spec §4.1's observation window
	// max(created_at, now - N*half_life).
	decayWindowHalfLives = 5
)

// Utility computes the expected-future-savings-minus-storage-cost scalar
// for item as of now, given config. Pure and deterministic.
func Utility(item *cacheitem.CacheItem, cfg cacheitem.Config, now time.Time) float64 {
	storageCost := storageCostPerSecond(item.SizeBytes, cfg)
	rate := accessRateEstimate(item, cfg, now)
	savings := rate * item.ComputeCost.Seconds()
	return savings - storageCost
}

// storageCostPerSecond is size_bytes/GB * (1/exchange_rate) * (1/60), in
// compute-seconds-per-second (spec §4.1).
func storageCostPerSecond(sizeBytes uint64, cfg cacheitem.Config) float64 {
	if sizeBytes == 0 {
		return 0
	}
	gb := float64(sizeBytes) / bytesPerGB
	return gb / cfg.CostOfMinuteComputeRelToCostOf1GB / 60.0
}

// accessRateEstimate returns weighted accesses per unit time via
// exponential decay with parameter HalfLifeOfAccesses. An item with an
// empty access log uses a prior of exactly one access at created_at
// (spec §4.1 edge case).
func accessRateEstimate(item *cacheitem.CacheItem, cfg cacheitem.Config, now time.Time) float64 {
	halfLife := cfg.HalfLifeOfAccesses.Seconds()
	if halfLife <= 0 {
		halfLife = 1
	}

	accesses := item.AccessLog
	if len(accesses) == 0 {
		accesses = []time.Time{item.CreatedAt}
	}

	windowStart := now.Add(-time.Duration(decayWindowHalfLives) * cfg.HalfLifeOfAccesses)
	if item.CreatedAt.After(windowStart) {
		windowStart = item.CreatedAt
	}

	var weighted float64
	for _, t := range accesses {
		age := now.Sub(t).Seconds()
		if age < 0 {
			age = 0
		}
		weighted += math.Exp2(-age / halfLife)
	}

	windowSeconds := now.Sub(windowStart).Seconds()
	if windowSeconds <= 0 {
		// created_at == now: no elapsed window to divide by yet, so the
		// raw weighted count is the best available rate estimate.
		return weighted
	}
	return weighted / windowSeconds
}

// Less implements the pruning tie-break order from spec §4.1: lower
// utility first, then (on exact ties) larger size first, then older
// created_at first, then lexicographic item key. a and b must carry
// pre-computed utilities (utilA, utilB) since Less is called inside
// sort's comparator where recomputing per-call would be wasteful.
func Less(a *cacheitem.CacheItem, utilA float64, b *cacheitem.CacheItem, utilB float64) bool {
	if utilA != utilB {
		return utilA < utilB
	}
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes > b.SizeBytes
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ItemKey.String() < b.ItemKey.String()
}
