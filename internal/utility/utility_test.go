package utility_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
	"github.com/adamryczkowski/cachemanager/internal/utility"
)

func cfg() cacheitem.Config {
	return cacheitem.Config{
		ReservedFreeSpace:                 0,
		CostOfMinuteComputeRelToCostOf1GB: 60,
		HalfLifeOfAccesses:                24 * time.Hour,
		MinUtilityToKeep:                  0,
	}
}

func TestUtility_ZeroSizeHasNoStorageCost(t *testing.T) {
	now := time.Now()
	item := &cacheitem.CacheItem{
		ItemKey:     cachekey.Hash([]byte("a")),
		SizeBytes:   0,
		ComputeCost: time.Minute,
		CreatedAt:   now.Add(-time.Hour),
	}
	u := utility.Utility(item, cfg(), now)
	assert.Greater(t, u, 0.0, "a zero-size item with positive compute cost should have positive utility")
}

func TestUtility_NeverAccessedDecaysWithAge(t *testing.T) {
	c := cfg()
	now := time.Now()
	fresh := &cacheitem.CacheItem{
		ItemKey:     cachekey.Hash([]byte("fresh")),
		SizeBytes:   1 << 30,
		ComputeCost: time.Minute,
		CreatedAt:   now.Add(-time.Minute),
	}
	stale := &cacheitem.CacheItem{
		ItemKey:     cachekey.Hash([]byte("stale")),
		SizeBytes:   1 << 30,
		ComputeCost: time.Minute,
		CreatedAt:   now.Add(-30 * 24 * time.Hour),
	}
	uFresh := utility.Utility(fresh, c, now)
	uStale := utility.Utility(stale, c, now)
	assert.Greater(t, uFresh, uStale, "a just-created item should look more valuable than one idle for a month at the same half-life")
}

func TestUtility_RepeatedAccessRaisesEstimate(t *testing.T) {
	c := cfg()
	now := time.Now()
	base := &cacheitem.CacheItem{
		ItemKey:     cachekey.Hash([]byte("base")),
		SizeBytes:   1 << 20,
		ComputeCost: time.Second,
		CreatedAt:   now.Add(-2 * time.Hour),
	}
	hot := base.DeepCopy()
	for i := 0; i < 10; i++ {
		hot.RecordAccess(now.Add(-time.Duration(i) * time.Minute))
	}
	uBase := utility.Utility(base, c, now)
	uHot := utility.Utility(hot, c, now)
	assert.Greater(t, uHot, uBase)
}

func TestLess_TieBreakOrder(t *testing.T) {
	now := time.Now()
	older := &cacheitem.CacheItem{ItemKey: cachekey.Hash([]byte("a")), SizeBytes: 100, CreatedAt: now.Add(-time.Hour)}
	newer := &cacheitem.CacheItem{ItemKey: cachekey.Hash([]byte("b")), SizeBytes: 100, CreatedAt: now}
	bigger := &cacheitem.CacheItem{ItemKey: cachekey.Hash([]byte("c")), SizeBytes: 200, CreatedAt: now}

	// equal utility, equal size: older created_at sorts first (lower)
	assert.True(t, utility.Less(older, 0, newer, 0))
	assert.False(t, utility.Less(newer, 0, older, 0))

	// equal utility, different size: bigger sorts first (lower) as it's
	// preferred for eviction
	assert.True(t, utility.Less(bigger, 0, newer, 0))

	// lower utility always sorts first regardless of size/age
	assert.True(t, utility.Less(newer, -1, bigger, 5))
}

func TestLess_ItemKeyIsFinalTieBreak(t *testing.T) {
	now := time.Now()
	a := &cacheitem.CacheItem{ItemKey: cachekey.Hash([]byte("aaa")), SizeBytes: 10, CreatedAt: now}
	b := &cacheitem.CacheItem{ItemKey: cachekey.Hash([]byte("zzz")), SizeBytes: 10, CreatedAt: now}
	if a.ItemKey.String() < b.ItemKey.String() {
		assert.True(t, utility.Less(a, 0, b, 0))
	} else {
		assert.True(t, utility.Less(b, 0, a, 0))
	}
}
