package coordinator_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamryczkowski/cachemanager/internal/cachekey"
	"github.com/adamryczkowski/cachemanager/internal/coordinator"
	"github.com/adamryczkowski/cachemanager/internal/metastore"
	"github.com/adamryczkowski/cachemanager/internal/objstore"
	"github.com/adamryczkowski/cachemanager/internal/producer"
)

func newCoordinator(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	meta := metastore.NewMemStore()
	obj, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	c, err := coordinator.New(meta, obj, cachekey.NewPrefixKeyGen("objects/", ".bin"), nil)
	require.NoError(t, err)
	return c
}

// countingProducer counts Compute invocations so tests can assert on
// whether a recompute actually happened.
type countingProducer struct {
	*producer.FuncProducer
	computes int
}

func newCountingProducer(name, payload string) *countingProducer {
	cp := &countingProducer{}
	cp.FuncProducer = &producer.FuncProducer{
		Key: cachekey.Hash([]byte(name)),
		ComputeFunc: func() (any, error) {
			cp.computes++
			return payload, nil
		},
		SerializeFunc:   func(obj any) ([]byte, error) { return []byte(obj.(string)), nil },
		DeserializeFunc: func(data []byte) (any, error) { return string(data), nil },
		Label:           name,
	}
	return cp
}

func TestCoordinator_MissThenHit(t *testing.T) {
	c := newCoordinator(t)
	p := newCountingProducer("key-a", "computed-value")

	obj, err := c.GetObject(p)
	require.NoError(t, err)
	assert.Equal(t, "computed-value", obj)
	assert.Equal(t, 1, p.computes)

	obj, err = c.GetObject(p)
	require.NoError(t, err)
	assert.Equal(t, "computed-value", obj)
	assert.Equal(t, 1, p.computes, "a resident hit must not recompute")

	info, ok, err := c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, info.Resident())
	assert.Len(t, info.AccessLog, 2, "one access per GetObject; GetObjectInfo itself must not record an access")
}

func TestCoordinator_ComputeFailureLeavesNoMetadata(t *testing.T) {
	c := newCoordinator(t)
	p := &producer.FuncProducer{
		Key:         cachekey.Hash([]byte("boom")),
		ComputeFunc: func() (any, error) { return nil, errors.New("producer exploded") },
	}

	_, err := c.GetObject(p)
	assert.Error(t, err)

	_, ok, err := c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	assert.False(t, ok, "a failed compute must not leave a metadata record behind")
}

func TestCoordinator_MissingBlobTriggersOneRecompute(t *testing.T) {
	c := newCoordinator(t)
	p := newCountingProducer("key-b", "v1")

	_, err := c.GetObject(p)
	require.NoError(t, err)
	assert.Equal(t, 1, p.computes)

	info, ok, err := c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, c.Objects.Delete(info.StorageKey))

	obj, err := c.GetObject(p)
	require.NoError(t, err)
	assert.Equal(t, "v1", obj)
	assert.Equal(t, 2, p.computes, "a missing blob must trigger exactly one recompute")
}

func TestCoordinator_AddItemUnconditionallyPreservesCreatedAt(t *testing.T) {
	c := newCoordinator(t)
	p := newCountingProducer("key-c", "v1")

	_, err := c.GetObject(p)
	require.NoError(t, err)
	first, ok, err := c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	require.True(t, ok)

	p.FuncProducer.ComputeFunc = func() (any, error) { p.computes++; return "v2", nil }
	time.Sleep(time.Millisecond)

	refreshed, err := c.AddItemUnconditionally(p)
	require.NoError(t, err)
	assert.True(t, refreshed.CreatedAt.Equal(first.CreatedAt), "refresh must preserve the original created_at")

	obj, err := c.GetObject(p)
	require.NoError(t, err)
	assert.Equal(t, "v2", obj)
}

func TestCoordinator_ForgetRemovesBlobAndMetadata(t *testing.T) {
	c := newCoordinator(t)
	p := newCountingProducer("key-d", "v1")

	_, err := c.GetObject(p)
	require.NoError(t, err)
	info, ok, err := c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.Forget(p.ItemKey()))

	_, ok, err = c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := c.Objects.Exists(info.StorageKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCoordinator_PruneCacheDelegatesToEngine(t *testing.T) {
	c := newCoordinator(t)
	p := newCountingProducer("key-e", "v1")
	_, err := c.GetObject(p)
	require.NoError(t, err)

	cfg := c.Config()
	cfg.MinUtilityToKeep = 1e9 // absurdly high threshold forces eviction
	require.NoError(t, c.SetConfig(cfg))

	res, err := c.PruneCache(false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evicted)

	info, ok, err := c.GetObjectInfo(p.ItemKey())
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, info.Resident())
}
