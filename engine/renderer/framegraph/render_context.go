package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// PipelineSource resolves pipeline ids registered ahead of time. A miss means
// the pipeline is not ready yet.
type PipelineSource interface {
	GetRenderPipeline(id metadata.PipelineID) (*metadata.RenderPipeline, bool)
}

// RenderContext is what a pass closure sees while it runs: the materialized
// resources, the board, the pipelines and the command buffer of the pass.
type RenderContext struct {
	graph     *FrameGraph
	pass      *DevicePass
	table     *ResourceTable
	device    metadata.Device
	pipelines PipelineSource
	cb        metadata.CommandBuffer

	inRenderPass bool
}

func (ctx *RenderContext) PassName() string {
	return ctx.pass.Name
}

// CommandBuffer gives direct access to the command buffer of the pass.
func (ctx *RenderContext) CommandBuffer() metadata.CommandBuffer {
	return ctx.cb
}

func (ctx *RenderContext) resourceOf(raw RawResourceNodeHandle) (*VirtualResource, error) {
	node, err := ctx.graph.lookupNode(raw)
	if err != nil {
		return nil, err
	}
	return ctx.graph.resources[node.Resource], nil
}

// ReadResource returns the concrete object behind a read reference.
func ReadResource[T metadata.Concrete](ctx *RenderContext, ref ReadRef[T]) (T, error) {
	var zero T
	vr, err := ctx.resourceOf(ref.handle.raw)
	if err != nil {
		return zero, err
	}
	return lookup[T](ctx.table, vr)
}

// WriteResource returns the concrete object behind a write reference.
func WriteResource[T metadata.Concrete](ctx *RenderContext, ref WriteRef[T]) (T, error) {
	var zero T
	vr, err := ctx.resourceOf(ref.handle.raw)
	if err != nil {
		return zero, err
	}
	return lookup[T](ctx.table, vr)
}

// BoardResource returns the concrete object published on the board under name.
// The resource must have been requested by this pass or an earlier one.
func BoardResource[T metadata.Concrete](ctx *RenderContext, name string) (T, error) {
	var zero T
	raw, ok := ctx.graph.board.Get(name)
	if !ok {
		return zero, fmt.Errorf("board entry %q: %w", name, core.ErrResourceNotFound)
	}
	h, ok := Typed[T](raw)
	if !ok {
		return zero, fmt.Errorf("board entry %q is a %s: %w", name, raw.Kind, core.ErrResourceTypeMismatch)
	}
	return ReadResource(ctx, ReadRef[T]{handle: h})
}

func (ctx *RenderContext) resolveView(raw RawResourceNodeHandle) (*metadata.TextureView, error) {
	vr, err := ctx.resourceOf(raw)
	if err != nil {
		return nil, err
	}
	switch raw.Kind {
	case metadata.ResourceKindTextureView:
		return lookup[*metadata.TextureView](ctx.table, vr)
	case metadata.ResourceKindSwapChain:
		img, err := lookup[*metadata.SwapChainImage](ctx.table, vr)
		if err != nil {
			return nil, err
		}
		if img.View == nil {
			return nil, fmt.Errorf("swap chain image %s has no view: %w", img.Label, core.ErrResourceUninitialized)
		}
		return img.View, nil
	}
	return nil, fmt.Errorf("%s cannot be attached: %w", raw.Kind, core.ErrResourceTypeMismatch)
}

// RenderPipeline looks a pipeline up. A miss means it is still being created.
func (ctx *RenderContext) RenderPipeline(id metadata.PipelineID) (*metadata.RenderPipeline, bool) {
	if ctx.pipelines == nil {
		return nil, false
	}
	return ctx.pipelines.GetRenderPipeline(id)
}

// SetRenderPipeline binds the pipeline. It reports false when the pipeline is
// not ready yet, in which case the pass should skip drawing this frame.
func (ctx *RenderContext) SetRenderPipeline(id metadata.PipelineID) (bool, error) {
	p, ok := ctx.RenderPipeline(id)
	if !ok {
		return false, nil
	}
	if err := ctx.cb.SetRenderPipeline(p); err != nil {
		return false, err
	}
	return true, nil
}

func (ctx *RenderContext) SetVertexBuffer(slot uint32, ref ReadRef[*metadata.Buffer]) error {
	buf, err := ReadResource(ctx, ref)
	if err != nil {
		return err
	}
	return ctx.cb.SetVertexBuffer(slot, buf, 0)
}

func (ctx *RenderContext) SetIndexBuffer(ref ReadRef[*metadata.Buffer], format gputypes.IndexFormat) error {
	buf, err := ReadResource(ctx, ref)
	if err != nil {
		return err
	}
	return ctx.cb.SetIndexBuffer(buf, format, 0)
}

func (ctx *RenderContext) SetBindGroup(index uint32, group *metadata.BindGroup) error {
	return ctx.cb.SetBindGroup(index, group)
}

func (ctx *RenderContext) Draw(vertices, instances metadata.Range) error {
	return ctx.cb.Draw(vertices, instances)
}

func (ctx *RenderContext) DrawIndexed(indices metadata.Range, baseVertex int32, instances metadata.Range) error {
	return ctx.cb.DrawIndexed(indices, baseVertex, instances)
}
