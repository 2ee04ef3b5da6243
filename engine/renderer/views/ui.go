package views

import (
	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// RenderViewUI composes the scene color into the swap chain image and is the
// last view of the frame.
type RenderViewUI struct {
	PipelineID metadata.PipelineID
}

func NewRenderViewUI() *RenderViewUI {
	return &RenderViewUI{PipelineID: metadata.InvalidPipelineID}
}

func (vu *RenderViewUI) Name() string {
	return "ui"
}

func (vu *RenderViewUI) OnCreate(pipelines PipelineRegistry) error {
	id, err := pipelines.RegisterRenderPipeline(metadata.RenderPipelineDescriptor{
		Label:              "ui",
		VertexShader:       "fullscreen.vert",
		VertexEntryPoint:   "main",
		FragmentShader:     "ui.frag",
		FragmentEntryPoint: "main",
		ColorFormat:        gputypes.TextureFormatBGRA8Unorm,
		Topology:           gputypes.PrimitiveTopologyTriangleList,
		SampleCount:        1,
	})
	if err != nil {
		return err
	}
	vu.PipelineID = id
	return nil
}

func (vu *RenderViewUI) OnDestroy() error {
	return nil
}

func (vu *RenderViewUI) OnResize(width, height uint32) {}

func (vu *RenderViewUI) AddPasses(fg *framegraph.FrameGraph, frame FrameContext) error {
	present, err := boardHandle[*metadata.SwapChainImage](fg, renderer.PresentTarget)
	if err != nil {
		return err
	}

	return fg.AddPass("ui", InsertUI, func(b *framegraph.PassNodeBuilder) error {
		scene, err := readBoard[*metadata.TextureView](b, SceneColor)
		if err != nil {
			return err
		}
		target := framegraph.Write(b, present)
		framegraph.AddColorAttachment(b, target, metadata.ClearOps(gputypes.Color{A: 1}))

		pipeline := vu.PipelineID
		b.Render(func(ctx *framegraph.RenderContext) error {
			ok, err := ctx.SetRenderPipeline(pipeline)
			if err != nil || !ok {
				return err
			}
			view, err := framegraph.ReadResource(ctx, scene)
			if err != nil {
				return err
			}
			if err := ctx.SetBindGroup(0, &metadata.BindGroup{
				Label:   "ui-scene",
				Entries: []metadata.BindGroupEntry{{Binding: 0, TextureView: view}},
			}); err != nil {
				return err
			}
			return ctx.Draw(metadata.NewRange(0, 3), metadata.NewRange(0, 1))
		})
		return nil
	})
}
