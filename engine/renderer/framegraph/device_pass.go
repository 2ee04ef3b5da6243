package framegraph

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// DevicePass is the executable form of a pass node.
type DevicePass struct {
	Pass PassID
	Name string

	requests []*VirtualResource
	releases []*VirtualResource
	renderFn RenderFunc

	colorAttachments []colorAttachment
	depthAttachment  *depthAttachment
}

func newDevicePass(fg *FrameGraph, p *PassNode) *DevicePass {
	dp := &DevicePass{
		Pass:             p.ID,
		Name:             p.Name,
		renderFn:         p.takeRenderFn(),
		colorAttachments: p.colorAttachments,
		depthAttachment:  p.depthAttachment,
	}
	for _, id := range p.requests {
		dp.requests = append(dp.requests, fg.resources[id])
	}
	for _, id := range p.releases {
		dp.releases = append(dp.releases, fg.resources[id])
	}
	return dp
}

// Requests lists the resources acquired before the pass runs.
func (dp *DevicePass) Requests() []ResourceID {
	ids := make([]ResourceID, 0, len(dp.requests))
	for _, r := range dp.requests {
		ids = append(ids, r.ID)
	}
	return ids
}

// Releases lists the resources given back after the pass ran.
func (dp *DevicePass) Releases() []ResourceID {
	ids := make([]ResourceID, 0, len(dp.releases))
	for _, r := range dp.releases {
		ids = append(ids, r.ID)
	}
	return ids
}

// Begin materializes every requested resource into the table.
func (dp *DevicePass) Begin(table *ResourceTable) error {
	for _, vr := range dp.requests {
		if err := table.Request(vr); err != nil {
			return fmt.Errorf("pass %s begin: %w", dp.Name, err)
		}
	}
	return nil
}

// Run records the pass commands into a new command buffer. A failing closure
// only fails this pass, the command buffer is still returned so that End can
// close and submit what was recorded.
func (dp *DevicePass) Run(ctx *RenderContext) (metadata.CommandBuffer, error) {
	cb, err := ctx.device.CreateCommandBuffer(dp.Name)
	if err != nil {
		return nil, fmt.Errorf("pass %s: create command buffer: %w", dp.Name, err)
	}
	ctx.cb = cb

	desc, err := dp.renderPassDescriptor(ctx)
	if err != nil {
		return cb, fmt.Errorf("pass %s: %w", dp.Name, err)
	}
	if !desc.IsEmpty() {
		if err := cb.BeginRenderPass(desc); err != nil {
			return cb, fmt.Errorf("pass %s: begin render pass: %w", dp.Name, err)
		}
		ctx.inRenderPass = true
	}

	fn := dp.renderFn
	dp.renderFn = nil
	if fn == nil {
		return cb, nil
	}
	if err := fn(ctx); err != nil {
		return cb, fmt.Errorf("pass %s: %w", dp.Name, err)
	}
	return cb, nil
}

// End closes the command buffer, gives back the released resources, submits
// the recorded commands and then presents the released swap chain images.
func (dp *DevicePass) End(ctx *RenderContext, cb metadata.CommandBuffer) error {
	var errs error
	if cb != nil {
		if ctx.inRenderPass {
			if err := cb.EndRenderPass(); err != nil {
				errs = errors.Join(errs, err)
			}
			ctx.inRenderPass = false
		}
		if err := cb.Finish(); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	for _, vr := range dp.releases {
		if err := ctx.table.Release(vr); err != nil {
			// a failed Begin leaves some resources unrequested
			if errors.Is(err, core.ErrResourceUninitialized) {
				core.LogDebug("pass %s: %s", dp.Name, err.Error())
				continue
			}
			errs = errors.Join(errs, err)
		}
	}

	if cb != nil {
		if err := ctx.device.Submit([]metadata.CommandBuffer{cb}); err != nil {
			errs = errors.Join(errs, fmt.Errorf("submit: %w", err))
		}
	}
	if err := ctx.table.PresentReleased(); err != nil {
		errs = errors.Join(errs, err)
	}
	if errs != nil {
		return fmt.Errorf("pass %s end: %w", dp.Name, errs)
	}
	return nil
}

func (dp *DevicePass) renderPassDescriptor(ctx *RenderContext) (*metadata.RenderPassDescriptor, error) {
	desc := &metadata.RenderPassDescriptor{Label: dp.Name}
	for _, a := range dp.colorAttachments {
		view, err := ctx.resolveView(a.target)
		if err != nil {
			return nil, fmt.Errorf("color attachment: %w", err)
		}
		desc.ColorAttachments = append(desc.ColorAttachments, metadata.RenderPassColorAttachment{
			View: view,
			Ops:  a.ops,
		})
	}
	if a := dp.depthAttachment; a != nil {
		view, err := ctx.resolveView(a.target)
		if err != nil {
			return nil, fmt.Errorf("depth attachment: %w", err)
		}
		desc.DepthAttachment = &metadata.RenderPassDepthAttachment{
			View:            view,
			DepthLoad:       a.ops.Load,
			DepthStore:      a.ops.Store,
			DepthClearValue: a.clearDepth,
		}
	}
	return desc, nil
}
