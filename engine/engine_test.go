package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/renderer/views"
)

var viewShaders = []string{"skybox.vert", "skybox.frag", "fullscreen.vert", "ui.frag"}

type counters struct {
	updates, renders, resizes, shutdowns int
}

func newTestGame(config *core.EngineConfig) (*Game, *counters) {
	c := &counters{}
	g := &Game{
		ApplicationConfig: NewApplicationConfig(config, views.NewRenderViewSkybox(), views.NewRenderViewUI()),
	}
	g.FnInitialize = func() error {
		if g.SystemManager == nil || g.Device == nil {
			return assert.AnError
		}
		return nil
	}
	g.FnUpdate = func(float64) error {
		c.updates++
		return nil
	}
	g.FnRender = func(*framegraph.FrameGraph, views.FrameContext, float64) error {
		c.renders++
		return nil
	}
	g.FnOnResize = func(uint32, uint32) error {
		c.resizes++
		return nil
	}
	g.FnShutdown = func() error {
		c.shutdowns++
		return nil
	}
	return g, c
}

func testConfig() *core.EngineConfig {
	config := core.DefaultConfig()
	config.Application.TargetFPS = 0
	config.Renderer.Width, config.Renderer.Height = 64, 32
	return config
}

func newTestEngine(t *testing.T, config *core.EngineConfig) (*Engine, *headless.Device, *counters) {
	t.Helper()
	g, c := newTestGame(config)
	device := headless.NewDevice()
	e, err := New(g, device, core.NewMetrics())
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e, device, c
}

func TestEngineRunsConfiguredFrames(t *testing.T) {
	config := testConfig()
	config.Application.Frames = 5
	e, device, c := newTestEngine(t, config)
	for _, name := range viewShaders {
		e.SystemManager().PipelineCache().SetShader(name, []byte(name))
	}

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(5), e.Frames())
	assert.Len(t, device.Presented, 5)
	assert.Equal(t, 5, c.updates)
	assert.Equal(t, 5, c.renders)
	assert.Equal(t, 1, c.resizes)
	assert.Equal(t, 5.0, testutil.ToFloat64(e.metrics.FramesRendered))

	// the pipelines are built by the first update, so every frame draws
	last := device.Submitted[len(device.Submitted)-1]
	assert.Equal(t, 1, last.Count(headless.OpDraw))

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())
	assert.Equal(t, 1, c.shutdowns)
	assert.Equal(t, 0, device.Live())
	assert.NoError(t, e.Shutdown())
}

func TestEngineStopsOnContext(t *testing.T) {
	e, _, _ := newTestEngine(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx))
	assert.Greater(t, e.Frames(), uint64(0))
	require.NoError(t, e.Shutdown())
}

func TestEngineStageChecks(t *testing.T) {
	g, _ := newTestGame(testConfig())
	e, err := New(g, headless.NewDevice(), nil)
	require.NoError(t, err)

	assert.Error(t, e.Run(context.Background()))
	require.NoError(t, e.Initialize())
	assert.Error(t, e.Initialize())

	_, err = New(&Game{}, headless.NewDevice(), nil)
	assert.Error(t, err)
	_, err = New(g, nil, nil)
	assert.Error(t, err)
}

func TestEngineSuspendsOnZeroSize(t *testing.T) {
	e, device, c := newTestEngine(t, testConfig())

	require.NoError(t, e.OnResize(0, 0))
	assert.True(t, e.IsSuspended())

	require.NoError(t, e.OnResize(128, 64))
	assert.False(t, e.IsSuspended())
	assert.Equal(t, 2, c.resizes)

	w, h := e.Renderer().Size()
	assert.Equal(t, uint32(128), w)
	assert.Equal(t, uint32(64), h)

	_, err := e.RunFrame(0.016)
	require.NoError(t, err)
	require.Len(t, device.Presented, 1)
	assert.Equal(t, uint32(128), device.Presented[0].Desc.Width)
}

func TestEngineBrokenGraphStopsTheLoop(t *testing.T) {
	config := testConfig()
	config.Application.Frames = 10
	g, _ := newTestGame(config)
	g.FnRender = func(fg *framegraph.FrameGraph, _ views.FrameContext, _ float64) error {
		return fg.AddPass("broken", 0, func(b *framegraph.PassNodeBuilder) error {
			framegraph.Read(b, framegraph.ResourceNodeHandle[*metadata.Buffer]{})
			return nil
		})
	}
	e, err := New(g, headless.NewDevice(), nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	assert.ErrorIs(t, e.Run(context.Background()), core.ErrInvalidHandle)
	assert.Equal(t, uint64(0), e.Frames())
}

func TestEngineWatchesShaderDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range viewShaders {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	config := testConfig()
	config.Pipelines.ShaderDir = dir
	e, _, _ := newTestEngine(t, config)
	defer e.Shutdown()

	require.NotNil(t, e.Watcher())
	assert.ElementsMatch(t, viewShaders, e.Watcher().Shaders())

	// shader files are loaded on the job system
	assert.Eventually(t, func() bool {
		if err := e.SystemManager().Update(0); err != nil {
			return false
		}
		return e.SystemManager().PipelineCache().Pending() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
