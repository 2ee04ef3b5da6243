package views

import (
	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// The cube is generated by the vertex shader.
const skyboxVertexCount = 36

// RenderViewSkybox clears the scene color and draws the sky into it. It
// publishes the scene color on the board for the views after it.
type RenderViewSkybox struct {
	PipelineID metadata.PipelineID
	ClearColor gputypes.Color
}

func NewRenderViewSkybox() *RenderViewSkybox {
	return &RenderViewSkybox{
		PipelineID: metadata.InvalidPipelineID,
		ClearColor: gputypes.Color{R: 0.1, G: 0.1, B: 0.2, A: 1},
	}
}

func (vs *RenderViewSkybox) Name() string {
	return "skybox"
}

func (vs *RenderViewSkybox) OnCreate(pipelines PipelineRegistry) error {
	id, err := pipelines.RegisterRenderPipeline(metadata.RenderPipelineDescriptor{
		Label:              "skybox",
		VertexShader:       "skybox.vert",
		VertexEntryPoint:   "main",
		FragmentShader:     "skybox.frag",
		FragmentEntryPoint: "main",
		ColorFormat:        SceneColorFormat,
		Topology:           gputypes.PrimitiveTopologyTriangleList,
		CullMode:           gputypes.CullModeFront,
		FrontFace:          gputypes.FrontFaceCCW,
		SampleCount:        1,
	})
	if err != nil {
		return err
	}
	vs.PipelineID = id
	return nil
}

func (vs *RenderViewSkybox) OnDestroy() error {
	return nil
}

func (vs *RenderViewSkybox) OnResize(width, height uint32) {}

func (vs *RenderViewSkybox) AddPasses(fg *framegraph.FrameGraph, frame FrameContext) error {
	return fg.AddPass("skybox", InsertSkybox, func(b *framegraph.PassNodeBuilder) error {
		color := framegraph.Create[*metadata.TextureView](b, SceneColor, colorTarget(frame.Width, frame.Height))
		target := framegraph.Write(b, color)
		framegraph.AddColorAttachment(b, target, metadata.ClearOps(vs.ClearColor))
		fg.Board().Put(SceneColor, target.Handle().Raw())

		pipeline := vs.PipelineID
		b.Render(func(ctx *framegraph.RenderContext) error {
			ok, err := ctx.SetRenderPipeline(pipeline)
			if err != nil || !ok {
				// the clear still happens while the pipeline builds
				return err
			}
			return ctx.Draw(metadata.NewRange(0, skyboxVertexCount), metadata.NewRange(0, 1))
		})
		return nil
	})
}
