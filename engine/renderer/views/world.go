package views

import (
	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// RenderViewWorld draws the world geometry on top of the sky, then resolves
// the result against the previous frame kept as a temporal resource.
type RenderViewWorld struct {
	OpaquePipeline  metadata.PipelineID
	ResolvePipeline metadata.PipelineID

	// Geometry is bound both as vertex and index buffer. It is owned by the
	// caller and imported on every frame.
	Geometry   *metadata.Buffer
	IndexCount uint32
}

func NewRenderViewWorld(geometry *metadata.Buffer, indexCount uint32) *RenderViewWorld {
	return &RenderViewWorld{
		OpaquePipeline:  metadata.InvalidPipelineID,
		ResolvePipeline: metadata.InvalidPipelineID,
		Geometry:        geometry,
		IndexCount:      indexCount,
	}
}

func (vw *RenderViewWorld) Name() string {
	return "world"
}

func (vw *RenderViewWorld) OnCreate(pipelines PipelineRegistry) error {
	var err error
	vw.OpaquePipeline, err = pipelines.RegisterRenderPipeline(metadata.RenderPipelineDescriptor{
		Label:              "world-opaque",
		VertexShader:       "world.vert",
		VertexEntryPoint:   "main",
		FragmentShader:     "world.frag",
		FragmentEntryPoint: "main",
		ColorFormat:        SceneColorFormat,
		DepthFormat:        DepthFormat,
		Topology:           gputypes.PrimitiveTopologyTriangleList,
		CullMode:           gputypes.CullModeBack,
		FrontFace:          gputypes.FrontFaceCCW,
		SampleCount:        1,
	})
	if err != nil {
		return err
	}
	vw.ResolvePipeline, err = pipelines.RegisterRenderPipeline(metadata.RenderPipelineDescriptor{
		Label:              "world-resolve",
		VertexShader:       "fullscreen.vert",
		VertexEntryPoint:   "main",
		FragmentShader:     "resolve.frag",
		FragmentEntryPoint: "main",
		ColorFormat:        SceneColorFormat,
		Topology:           gputypes.PrimitiveTopologyTriangleList,
		SampleCount:        1,
	})
	return err
}

func (vw *RenderViewWorld) OnDestroy() error {
	return nil
}

func (vw *RenderViewWorld) OnResize(width, height uint32) {}

func (vw *RenderViewWorld) AddPasses(fg *framegraph.FrameGraph, frame FrameContext) error {
	if err := vw.addOpaquePass(fg, frame); err != nil {
		return err
	}
	return vw.addResolvePass(fg, frame)
}

func (vw *RenderViewWorld) addOpaquePass(fg *framegraph.FrameGraph, frame FrameContext) error {
	scene, err := boardHandle[*metadata.TextureView](fg, SceneColor)
	if err != nil {
		return err
	}

	return fg.AddPass("world-opaque", InsertWorld, func(b *framegraph.PassNodeBuilder) error {
		// the sky is loaded, not cleared
		framegraph.Read(b, scene)
		color := framegraph.Write(b, scene)
		framegraph.AddColorAttachment(b, color, metadata.LoadOps())
		depth := framegraph.Write(b, framegraph.Create[*metadata.TextureView](b, "world-depth", depthTarget(frame.Width, frame.Height)))
		b.SetDepthAttachment(depth, metadata.ClearOps(gputypes.Color{}), 1.0)
		fg.Board().Put(SceneColor, color.Handle().Raw())

		var geometry framegraph.ReadRef[*metadata.Buffer]
		if vw.Geometry != nil {
			geometry = framegraph.Read(b, framegraph.Import(b, "world-geometry", vw.Geometry))
		}

		pipeline, indexCount := vw.OpaquePipeline, vw.IndexCount
		b.Render(func(ctx *framegraph.RenderContext) error {
			if !geometry.IsValid() {
				return nil
			}
			ok, err := ctx.SetRenderPipeline(pipeline)
			if err != nil || !ok {
				return err
			}
			if err := ctx.SetVertexBuffer(0, geometry); err != nil {
				return err
			}
			if err := ctx.SetIndexBuffer(geometry, gputypes.IndexFormatUint32); err != nil {
				return err
			}
			return ctx.DrawIndexed(metadata.NewRange(0, indexCount), 0, metadata.NewRange(0, 1))
		})
		return nil
	})
}

func (vw *RenderViewWorld) addResolvePass(fg *framegraph.FrameGraph, frame FrameContext) error {
	if frame.Temporal == nil {
		return nil
	}
	history, err := framegraph.PutTemporal[*metadata.TextureView](frame.Temporal, fg, WorldHistory, colorTarget(frame.Width, frame.Height))
	if err != nil {
		return err
	}

	return fg.AddPass("world-resolve", InsertResolve, func(b *framegraph.PassNodeBuilder) error {
		scene, err := readBoard[*metadata.TextureView](b, SceneColor)
		if err != nil {
			return err
		}
		previous := framegraph.Read(b, history)
		target := framegraph.Write(b, history)
		framegraph.AddColorAttachment(b, target, metadata.LoadOps())

		pipeline := vw.ResolvePipeline
		b.Render(func(ctx *framegraph.RenderContext) error {
			ok, err := ctx.SetRenderPipeline(pipeline)
			if err != nil || !ok {
				return err
			}
			current, err := framegraph.ReadResource(ctx, scene)
			if err != nil {
				return err
			}
			prev, err := framegraph.ReadResource(ctx, previous)
			if err != nil {
				return err
			}
			if err := ctx.SetBindGroup(0, &metadata.BindGroup{
				Label: "world-resolve",
				Entries: []metadata.BindGroupEntry{
					{Binding: 0, TextureView: current},
					{Binding: 1, TextureView: prev},
				},
			}); err != nil {
				return err
			}
			return ctx.Draw(metadata.NewRange(0, 3), metadata.NewRange(0, 1))
		})
		return nil
	})
}
