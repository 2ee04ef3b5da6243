package framegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func newPooled(t *testing.T, device *headless.Device, desc metadata.Descriptor) metadata.Resource {
	t.Helper()
	res, err := device.CreateResource(desc, "pooled")
	require.NoError(t, err)
	return res
}

func TestCacheRoundTrip(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	desc := bufferDesc(64)

	_, ok := cache.Get(desc)
	assert.False(t, ok)

	res := newPooled(t, device, desc)
	require.NoError(t, cache.Insert(desc, res))
	assert.Equal(t, 1, cache.Len())

	// a different descriptor misses
	_, ok = cache.Get(bufferDesc(128))
	assert.False(t, ok)

	got, ok := cache.Get(desc)
	require.True(t, ok)
	assert.True(t, got.Same(res))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.LenFor(desc))
}

func TestCacheIsLIFO(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	desc := bufferDesc(64)

	first := newPooled(t, device, desc)
	second := newPooled(t, device, desc)
	require.NoError(t, cache.Insert(desc, first))
	require.NoError(t, cache.Insert(desc, second))
	assert.Equal(t, 2, cache.LenFor(desc))

	got, _ := cache.Get(desc)
	assert.True(t, got.Same(second))
	got, _ = cache.Get(desc)
	assert.True(t, got.Same(first))
}

func TestCacheRefusesDoubleInsert(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	desc := bufferDesc(64)
	res := newPooled(t, device, desc)

	require.NoError(t, cache.Insert(desc, res))
	assert.ErrorIs(t, cache.Insert(desc, res), core.ErrResourceAlreadyTaken)
	assert.ErrorIs(t, cache.Insert(desc, metadata.Resource{}), core.ErrInvalidHandle)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheEvictsIdleObjects(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(2)
	desc := bufferDesc(64)

	require.NoError(t, cache.Insert(desc, newPooled(t, device, desc)))

	for i := 0; i < 2; i++ {
		n, err := cache.EndFrame(device)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Equal(t, 1, cache.Len())

	// a fresh object inserted now survives the eviction of the old one
	require.NoError(t, cache.Insert(desc, newPooled(t, device, desc)))

	n, err := cache.EndFrame(device)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, device.Destroyed())
	assert.Equal(t, uint64(3), cache.Frame())
}

func TestCacheWithoutEviction(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	desc := bufferDesc(64)
	require.NoError(t, cache.Insert(desc, newPooled(t, device, desc)))

	for i := 0; i < 1000; i++ {
		_, err := cache.EndFrame(device)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.Len())
	assert.Zero(t, device.Destroyed())
}

func TestCacheClear(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	for _, size := range []uint64{16, 32, 32} {
		desc := bufferDesc(size)
		require.NoError(t, cache.Insert(desc, newPooled(t, device, desc)))
	}

	require.NoError(t, cache.Clear(device))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, device.Live())
	assert.Equal(t, 3, device.Destroyed())
}

func TestResourceTableLifecycle(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	table := NewResourceTable(device, cache, nil)
	vr := newSetupResource(0, "scratch", bufferDesc(64))

	assert.ErrorIs(t, table.Release(vr), core.ErrResourceUninitialized)

	require.NoError(t, table.Request(vr))
	assert.True(t, table.Contains(vr.ID))
	assert.ErrorIs(t, table.Request(vr), core.ErrResourceAlreadyTaken)

	_, err := lookup[*metadata.TextureView](table, vr)
	assert.ErrorIs(t, err, core.ErrResourceTypeMismatch)
	buf, err := lookup[*metadata.Buffer](table, vr)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), buf.Desc.Size)

	require.NoError(t, table.Release(vr))
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 1, cache.Len())
	assert.ErrorIs(t, table.Release(vr), core.ErrResourceUninitialized)

	_, err = lookup[*metadata.Buffer](table, vr)
	assert.ErrorIs(t, err, core.ErrResourceNotFound)
}

func TestResourceTableRejectsMismatchedPoolEntry(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	desc := bufferDesc(64)

	// a view pooled under a buffer descriptor
	view := newPooled(t, device, colorDesc(8, 8))
	require.NoError(t, cache.Insert(desc, view))

	table := NewResourceTable(device, cache, nil)
	err := table.Request(newSetupResource(0, "scratch", desc))
	assert.ErrorIs(t, err, core.ErrResourceTypeMismatch)

	// the rejected object is destroyed, not leaked
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, device.Live())
	assert.Equal(t, 1, device.Destroyed())
}

func TestReleaseAllDropsImported(t *testing.T) {
	device := headless.NewDevice()
	cache := NewTransientResourceCache(0)
	table := NewResourceTable(device, cache, nil)

	imported := newImportedResource(0, "mesh", metadata.Wrap(&metadata.Buffer{ID: 900, Label: "mesh"}))
	leftover := newSetupResource(1, "leftover", bufferDesc(32))
	require.NoError(t, table.Request(imported))
	require.NoError(t, table.Request(leftover))

	require.NoError(t, table.ReleaseAll())
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, cache.LenFor(bufferDesc(32)))
}
