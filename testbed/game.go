package testbed

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/renderer/views"
)

//go:embed shaders
var builtinShaders embed.FS

const (
	cubeVertexCount = 8
	cubeIndexCount  = 36
	// position only, 3 floats per vertex
	cubeVertexStride = 12
	statsInterval    = 5.0
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	world    *views.RenderViewWorld
	geometry *metadata.Buffer

	width  uint32
	height uint32

	elapsed   float64
	sinceLog  float64
	frameSeen uint64
}

func NewTestGame(config *core.EngineConfig) *TestGame {
	world := views.NewRenderViewWorld(nil, cubeIndexCount)
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: engine.NewApplicationConfig(config,
				views.NewRenderViewSkybox(),
				world,
				views.NewRenderViewUI(),
			),
			State: &gameState{world: world},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil || g.Device == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}

	state := g.state()
	res, err := g.Device.CreateResource(metadata.BufferDesc(metadata.BufferDescriptor{
		Size:  cubeVertexCount*cubeVertexStride + cubeIndexCount*4,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	}), "test-cube")
	if err != nil {
		return err
	}
	state.geometry, err = metadata.Borrow[*metadata.Buffer](res)
	if err != nil {
		return err
	}
	state.world.Geometry = state.geometry

	// without a shader directory the embedded shaders are used, and never reloaded
	if g.ApplicationConfig.Engine.Pipelines.ShaderDir == "" {
		return g.loadBuiltinShaders()
	}
	return nil
}

func (g *TestGame) loadBuiltinShaders() error {
	pipelines := g.SystemManager.PipelineCache()
	return fs.WalkDir(builtinShaders, "shaders", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		source, err := builtinShaders.ReadFile(path)
		if err != nil {
			return err
		}
		pipelines.SetShader(d.Name(), source)
		core.LogDebug("loaded builtin shader %s", d.Name())
		return nil
	})
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.elapsed += deltaTime
	state.sinceLog += deltaTime
	state.frameSeen++
	if state.sinceLog >= statsInterval {
		state.sinceLog = 0
		core.LogInfo("%d frames in %.1fs, %d pipelines pending", state.frameSeen, state.elapsed, g.SystemManager.PipelineCache().Pending())
	}
	return nil
}

// Render adds a side effect pass reading the final scene color, the kind of
// pass a screenshot or a GPU timing readback would be.
func (g *TestGame) Render(fg *framegraph.FrameGraph, frame views.FrameContext, deltaTime float64) error {
	return fg.AddPass("scene-readback", views.InsertUI+1, func(b *framegraph.PassNodeBuilder) error {
		scene, ok := framegraph.ReadFromBoard[*metadata.TextureView](b, views.SceneColor)
		if !ok {
			if err := b.Err(); err != nil {
				return err
			}
			return fmt.Errorf("scene-readback: %q is not on the board", views.SceneColor)
		}
		b.SideEffect()
		b.Render(func(ctx *framegraph.RenderContext) error {
			view, err := framegraph.ReadResource(ctx, scene)
			if err != nil {
				return err
			}
			if view.Desc.Texture.Size.Width != frame.Width {
				return fmt.Errorf("scene is %d wide, the frame is %d", view.Desc.Texture.Size.Width, frame.Width)
			}
			return nil
		})
		return nil
	})
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	if state.geometry == nil {
		return nil
	}
	err := g.Device.DestroyResource(metadata.Wrap(state.geometry))
	state.geometry = nil
	state.world.Geometry = nil
	return err
}
