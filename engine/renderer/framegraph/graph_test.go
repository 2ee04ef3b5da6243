package framegraph

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func bufferDesc(size uint64) metadata.Descriptor {
	return metadata.BufferDesc(metadata.BufferDescriptor{
		Size:  size,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
}

func colorDesc(width, height uint32) metadata.Descriptor {
	return metadata.TextureViewDesc(metadata.NewRenderTargetViewDescriptor(width, height, gputypes.TextureFormatRGBA8Unorm))
}

func passNames(passes []*DevicePass) []string {
	names := make([]string, 0, len(passes))
	for _, dp := range passes {
		names = append(names, dp.Name)
	}
	return names
}

// buildABC declares A writing R, B reading and rewriting R, C reading B's version.
func buildABC(t *testing.T, fg *FrameGraph, fns map[string]RenderFunc) ResourceID {
	t.Helper()
	var ra, rb WriteRef[*metadata.Buffer]
	var id ResourceID

	require.NoError(t, fg.AddPass("A", 0, func(b *PassNodeBuilder) error {
		r := Create[*metadata.Buffer](b, "R", bufferDesc(64))
		id = r.Raw().Resource
		ra = Write(b, r)
		if fn := fns["A"]; fn != nil {
			b.Render(fn)
		}
		return nil
	}))
	require.NoError(t, fg.AddPass("B", 1, func(b *PassNodeBuilder) error {
		Read(b, ra.Handle())
		rb = Write(b, ra.Handle())
		if fn := fns["B"]; fn != nil {
			b.Render(fn)
		}
		return nil
	}))
	require.NoError(t, fg.AddPass("C", 2, func(b *PassNodeBuilder) error {
		ref := Read(b, rb.Handle())
		if fn := fns["C"]; fn != nil {
			b.Render(fn)
			return nil
		}
		b.Render(func(ctx *RenderContext) error {
			_, err := ReadResource(ctx, ref)
			return err
		})
		return nil
	}))
	return id
}

func TestWriteCreatesNewVersion(t *testing.T) {
	fg := New("versions")
	var created ResourceNodeHandle[*metadata.Buffer]
	var first, second WriteRef[*metadata.Buffer]

	require.NoError(t, fg.AddPass("first", 0, func(b *PassNodeBuilder) error {
		created = Create[*metadata.Buffer](b, "buffer", bufferDesc(64))
		first = Write(b, created)
		return nil
	}))
	require.NoError(t, fg.AddPass("second", 1, func(b *PassNodeBuilder) error {
		Read(b, first.Handle())
		second = Write(b, first.Handle())
		return nil
	}))

	v0, ok := fg.Node(created.Raw().Node)
	require.True(t, ok)
	v1, _ := fg.Node(first.Handle().Raw().Node)
	v2, _ := fg.Node(second.Handle().Raw().Node)

	assert.Equal(t, uint32(0), v0.Version())
	assert.Equal(t, uint32(1), v1.Version())
	assert.Equal(t, uint32(2), v2.Version())
	assert.Equal(t, v0.Resource, v2.Resource)
	assert.NotEqual(t, v1.ID, v2.ID)

	_, hasWriter := v0.Writer()
	assert.False(t, hasWriter)
	writer, hasWriter := v2.Writer()
	require.True(t, hasWriter)
	assert.Equal(t, PassID(1), writer)

	res, ok := fg.Resource(v0.Resource)
	require.True(t, ok)
	assert.Equal(t, uint32(2), res.Version())
	assert.False(t, res.IsImported())
}

func TestReadIsRecordedOnce(t *testing.T) {
	fg := New("reads")
	h, err := CreateResource[*metadata.Buffer](fg, "buffer", bufferDesc(16))
	require.NoError(t, err)

	require.NoError(t, fg.AddPass("reader", 0, func(b *PassNodeBuilder) error {
		Read(b, h)
		Read(b, h)
		return nil
	}))
	p, _ := fg.Pass(0)
	assert.Equal(t, []NodeID{h.Raw().Node}, p.Reads())
}

func TestCompileABC(t *testing.T) {
	fg := New("abc")
	id := buildABC(t, fg, nil)

	require.NoError(t, fg.Compile())
	assert.True(t, fg.IsCompiled())

	dps := fg.DevicePasses()
	assert.Equal(t, []string{"A", "B", "C"}, passNames(dps))

	res, _ := fg.Resource(id)
	first, ok := res.FirstPass()
	require.True(t, ok)
	last, _ := res.LastPass()
	assert.Equal(t, PassID(0), first)
	assert.Equal(t, PassID(2), last)

	assert.Equal(t, []ResourceID{id}, dps[0].Requests())
	assert.Empty(t, dps[0].Releases())
	assert.Empty(t, dps[1].Requests())
	assert.Empty(t, dps[1].Releases())
	assert.Empty(t, dps[2].Requests())
	assert.Equal(t, []ResourceID{id}, dps[2].Releases())

	assert.Equal(t, Stats{Declared: 3, Culled: 0, Compiled: 3, Resources: 1}, fg.Stats())
}

func TestOrderByInsertPointIsStable(t *testing.T) {
	fg := New("order")
	for _, p := range []struct {
		name  string
		point uint32
	}{
		{"late", 2},
		{"early", 0},
		{"tie-a", 1},
		{"tie-b", 1},
		{"tie-c", 1},
	} {
		require.NoError(t, fg.AddPass(p.name, p.point, func(*PassNodeBuilder) error { return nil }))
	}

	require.NoError(t, fg.Compile())
	assert.Equal(t, []string{"early", "tie-a", "tie-b", "tie-c", "late"}, passNames(fg.DevicePasses()))
}

func TestUnusedResourceHasNoLifetime(t *testing.T) {
	fg := New("unused")
	h, err := CreateResource[*metadata.Buffer](fg, "unused", bufferDesc(32))
	require.NoError(t, err)
	require.NoError(t, fg.AddPass("noop", 0, func(*PassNodeBuilder) error { return nil }))

	require.NoError(t, fg.Compile())

	res, _ := fg.Resource(h.Raw().Resource)
	_, ok := res.FirstPass()
	assert.False(t, ok)
	for _, dp := range fg.DevicePasses() {
		assert.Empty(t, dp.Requests())
		assert.Empty(t, dp.Releases())
	}
}

func TestLifetimeFollowsExecutionOrder(t *testing.T) {
	fg := New("lifetime")
	h, err := CreateResource[*metadata.Buffer](fg, "shared", bufferDesc(32))
	require.NoError(t, err)

	// declared last but executed first
	require.NoError(t, fg.AddPass("late", 5, func(b *PassNodeBuilder) error {
		Read(b, h)
		return nil
	}))
	require.NoError(t, fg.AddPass("early", 1, func(b *PassNodeBuilder) error {
		Read(b, h)
		return nil
	}))
	require.NoError(t, fg.Compile())

	res, _ := fg.Resource(h.Raw().Resource)
	first, _ := res.FirstPass()
	last, _ := res.LastPass()
	assert.Equal(t, PassID(1), first)
	assert.Equal(t, PassID(0), last)

	dps := fg.DevicePasses()
	assert.Equal(t, []string{"early", "late"}, passNames(dps))
	assert.Equal(t, []ResourceID{h.Raw().Resource}, dps[0].Requests())
	assert.Equal(t, []ResourceID{h.Raw().Resource}, dps[1].Releases())
}

func TestRenderSetTwiceFailsTheGraph(t *testing.T) {
	fg := New("twice")
	err := fg.AddPass("double", 0, func(b *PassNodeBuilder) error {
		b.Render(func(*RenderContext) error { return nil })
		b.Render(func(*RenderContext) error { return nil })
		return nil
	})
	assert.ErrorIs(t, err, core.ErrRenderFnAlreadySet)

	err = fg.Compile()
	assert.ErrorIs(t, err, core.ErrRenderFnAlreadySet)
	assert.False(t, fg.IsCompiled())
}

func TestCreateChecksHandleKind(t *testing.T) {
	fg := New("kinds")
	err := fg.AddPass("wrong", 0, func(b *PassNodeBuilder) error {
		Create[*metadata.Texture](b, "buffer", bufferDesc(8))
		return nil
	})
	assert.ErrorIs(t, err, core.ErrResourceTypeMismatch)

	_, err = CreateResource[*metadata.Buffer](fg, "empty", metadata.BufferDesc(metadata.BufferDescriptor{}))
	assert.ErrorIs(t, err, core.ErrInvalidDescriptor)
}

func TestImportNilIsRejected(t *testing.T) {
	fg := New("nil")
	_, err := ImportResource[*metadata.Buffer](fg, "nothing", nil)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
}

func TestCompileTwice(t *testing.T) {
	fg := New("twice")
	require.NoError(t, fg.AddPass("noop", 0, func(*PassNodeBuilder) error { return nil }))
	require.NoError(t, fg.Compile())

	assert.ErrorIs(t, fg.Compile(), core.ErrGraphAlreadyCompiled)
	assert.ErrorIs(t, fg.AddPass("late", 0, func(*PassNodeBuilder) error { return nil }), core.ErrGraphAlreadyCompiled)
	_, err := CreateResource[*metadata.Buffer](fg, "late", bufferDesc(8))
	assert.ErrorIs(t, err, core.ErrGraphAlreadyCompiled)
}

func TestHandleFromAnotherGraphIsRejected(t *testing.T) {
	other := New("other")
	h, err := CreateResource[*metadata.Buffer](other, "foreign", bufferDesc(8))
	require.NoError(t, err)

	fg := New("main")
	_, err = CreateResource[*metadata.Buffer](fg, "local", bufferDesc(8))
	require.NoError(t, err)

	err = fg.AddPass("reader", 0, func(b *PassNodeBuilder) error {
		ref := Read(b, h)
		assert.False(t, ref.IsValid())
		return nil
	})
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
}

func TestTypedHandles(t *testing.T) {
	fg := New("typed")
	h, err := CreateResource[*metadata.Buffer](fg, "buffer", bufferDesc(8))
	require.NoError(t, err)

	back, ok := Typed[*metadata.Buffer](h.Raw())
	assert.True(t, ok)
	assert.Equal(t, h, back)

	_, ok = Typed[*metadata.TextureView](h.Raw())
	assert.False(t, ok)
	_, ok = Typed[*metadata.Buffer](RawResourceNodeHandle{})
	assert.False(t, ok)
}

func TestResetDropsEverythingButTheBoard(t *testing.T) {
	fg := New("reset")
	_, err := ImportResource(fg, "imported", &metadata.Buffer{ID: 1, Label: "imported"})
	require.NoError(t, err)
	require.NoError(t, fg.AddPass("noop", 0, func(*PassNodeBuilder) error { return nil }))
	require.NoError(t, fg.Compile())

	fg.Reset()

	assert.False(t, fg.IsCompiled())
	_, ok := fg.Pass(0)
	assert.False(t, ok)
	_, ok = fg.Resource(0)
	assert.False(t, ok)
	assert.Empty(t, fg.DevicePasses())
	assert.Equal(t, 1, fg.Board().Len())
}
