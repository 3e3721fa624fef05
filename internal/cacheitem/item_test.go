package cacheitem_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamryczkowski/cachemanager/internal/cacheitem"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

func TestCacheItem_ResidentReflectsStorageKey(t *testing.T) {
	item := &cacheitem.CacheItem{}
	assert.False(t, item.Resident())
	item.StorageKey = "objects/a.bin"
	assert.True(t, item.Resident())
	item.MarkNonResident()
	assert.False(t, item.Resident())
	assert.Zero(t, item.SizeBytes)
}

func TestCacheItem_RecordAccessIsMonotone(t *testing.T) {
	item := &cacheitem.CacheItem{}
	t0 := time.Now()
	item.RecordAccess(t0)
	item.RecordAccess(t0.Add(-time.Hour)) // out of order, should clamp up to t0
	require.Len(t, item.AccessLog, 2)
	assert.True(t, item.AccessLog[1].Equal(t0))
}

func TestCacheItem_RecordAccessCapsLength(t *testing.T) {
	item := &cacheitem.CacheItem{}
	base := time.Now()
	for i := 0; i < 300; i++ {
		item.RecordAccess(base.Add(time.Duration(i) * time.Second))
	}
	assert.Len(t, item.AccessLog, 256)
	assert.True(t, item.AccessLog[len(item.AccessLog)-1].Equal(base.Add(299*time.Second)))
}

func TestCacheItem_RecordAccessInvalidatesUtility(t *testing.T) {
	item := &cacheitem.CacheItem{LastUtility: 5, UtilityValid: true}
	item.RecordAccess(time.Now())
	assert.False(t, item.UtilityValid)
	assert.Zero(t, item.LastUtility)
}

func TestCacheItem_DeepCopyDoesNotAliasAccessLog(t *testing.T) {
	item := &cacheitem.CacheItem{}
	item.RecordAccess(time.Now())
	cp := item.DeepCopy()
	cp.AccessLog[0] = time.Time{}
	assert.False(t, item.AccessLog[0].IsZero())
}

func TestCacheItem_MarshalRoundTrip(t *testing.T) {
	item := &cacheitem.CacheItem{
		ItemKey:     cachekey.Hash([]byte("payload")),
		StorageKey:  "objects/deadbeef.bin",
		SizeBytes:   4096,
		ComputeCost: 3 * time.Second,
		CreatedAt:   time.Now().Truncate(time.Second),
		Pretty:      "demo item",
	}
	item.RecordAccess(item.CreatedAt.Add(time.Minute))

	data, err := item.MarshalBinary()
	require.NoError(t, err)

	var out cacheitem.CacheItem
	require.NoError(t, out.UnmarshalBinary(data))

	assert.Equal(t, item.ItemKey, out.ItemKey)
	assert.Equal(t, item.StorageKey, out.StorageKey)
	assert.Equal(t, item.SizeBytes, out.SizeBytes)
	assert.Equal(t, item.ComputeCost, out.ComputeCost)
	assert.True(t, item.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, item.Pretty, out.Pretty)
	require.Len(t, out.AccessLog, 1)
}

func TestConfig_ValidateRejectsNegativeReservedSpace(t *testing.T) {
	c := cacheitem.DefaultConfig()
	c.ReservedFreeSpace = -1
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateRejectsNonPositiveCostRatio(t *testing.T) {
	c := cacheitem.DefaultConfig()
	c.CostOfMinuteComputeRelToCostOf1GB = 0
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateAcceptsDefault(t *testing.T) {
	assert.NoError(t, cacheitem.DefaultConfig().Validate())
}
