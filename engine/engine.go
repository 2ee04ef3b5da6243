package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/framegraph/engine/assets"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/renderer/views"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

// How often a suspended engine checks whether it was resumed.
const suspendedPoll = 10 * time.Millisecond

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *core.EngineConfig
	device        metadata.Device
	metrics       *core.Metrics
	systemManager *systems.SystemManager
	renderer      *renderer.Renderer
	watcher       *assets.ShaderWatcher
	views         []views.RenderView
	clock         *core.Clock
	lastTime      float64

	isRunning   atomic.Bool
	isSuspended bool
	frames      uint64
}

func New(g *Game, device metadata.Device, metrics *core.Metrics) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("engine needs a game with an application config")
	}
	config := g.ApplicationConfig.Engine
	if config == nil {
		config = core.DefaultConfig()
		g.ApplicationConfig.Engine = config
	}
	if err := config.Validate(); err != nil {
		core.LogError("%s", err.Error())
		return nil, err
	}

	sm, err := systems.NewSystemManager(config, device)
	if err != nil {
		core.LogError("%s", err.Error())
		return nil, err
	}

	r, err := renderer.New(config, device, sm.PipelineCache(), metrics)
	if err != nil {
		core.LogError("%s", err.Error())
		return nil, err
	}

	g.SystemManager = sm
	g.Device = device

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		config:        config,
		device:        device,
		metrics:       metrics,
		systemManager: sm,
		renderer:      r,
		views:         g.ApplicationConfig.Views,
		clock:         core.NewClock(),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Watcher() *assets.ShaderWatcher {
	return e.watcher
}

// Frames returns the number of frames drawn so far.
func (e *Engine) Frames() uint64 {
	return e.frames
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine cannot initialize while %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	level, err := core.ParseLogLevel(e.config.Application.LogLevel)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)

	if dir := e.config.Pipelines.ShaderDir; dir != "" {
		w, err := assets.NewShaderWatcher(e.systemManager.PipelineCache(), e.systemManager.JobSystem())
		if err != nil {
			return err
		}
		if err := w.Initialize(dir); err != nil {
			return err
		}
		e.watcher = w
		core.LogInfo("watching %d shaders in %s", len(w.Shaders()), dir)
	}

	for _, v := range e.views {
		if err := v.OnCreate(e.systemManager.PipelineCache()); err != nil {
			return fmt.Errorf("view %s: %w", v.Name(), err)
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	width, height := e.renderer.Size()
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Runs the frame loop until ctx is done, Stop is called or the
 * configured number of frames is drawn. A frame whose graph does not compile
 * stops the loop, failing passes do not.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run while %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	defer e.isRunning.Store(false)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if fps := e.config.Application.TargetFPS; fps > 0 {
		targetFrameSeconds = 1.0 / fps
	}

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("frame loop interrupted after %d frames", e.frames)
			return nil
		default:
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if !e.isSuspended {
			if _, err := e.RunFrame(delta); err != nil {
				core.LogError("frame %d failed, shutting down: %s", e.frames, err.Error())
				return err
			}
			e.metrics.Update(time.Since(frameStart).Seconds())
			if limit := e.config.Application.Frames; limit > 0 && e.frames >= limit {
				core.LogInfo("rendered %d frames, stopping", e.frames)
				return nil
			}
		}

		// If there is time left, give it back to the OS.
		frameElapsed := time.Since(frameStart).Seconds()
		if e.isSuspended && targetFrameSeconds == 0 {
			time.Sleep(suspendedPoll)
		} else if remaining := targetFrameSeconds - frameElapsed; remaining > 0 {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}

		e.lastTime = currentTime
	}
	return nil
}

// RunFrame updates the systems and the game, then declares, compiles and
// executes one frame graph.
func (e *Engine) RunFrame(delta float64) (*framegraph.FrameReport, error) {
	if err := e.systemManager.Update(delta); err != nil {
		return nil, err
	}
	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return nil, fmt.Errorf("game update: %w", err)
		}
	}

	fg, err := e.renderer.BeginFrame()
	if err != nil {
		return nil, err
	}
	width, height := e.renderer.Size()
	frame := views.FrameContext{
		Frame:    e.renderer.Frame(),
		Width:    width,
		Height:   height,
		Temporal: e.renderer.Temporal(),
	}
	for _, v := range e.views {
		if err := v.AddPasses(fg, frame); err != nil {
			core.LogError("view %s: %s", v.Name(), err.Error())
		}
	}
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(fg, frame, delta); err != nil {
			core.LogError("game render: %s", err.Error())
		}
	}

	report, err := e.renderer.DrawFrame()
	if err != nil {
		return nil, err
	}
	e.frames++
	return report, nil
}

// Stop makes Run return after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// OnResize resizes the swap chain. A zero size suspends drawing until the
// next non-zero size.
func (e *Engine) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return nil
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.renderer.OnResize(width, height); err != nil {
		return err
	}
	for _, v := range e.views {
		v.OnResize(width, height)
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(width, height)
	}
	return nil
}

func (e *Engine) IsSuspended() bool {
	return e.isSuspended
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.Stop()

	var errs error
	if e.watcher != nil {
		errs = errors.Join(errs, e.watcher.Close())
	}
	if e.gameInstance.FnShutdown != nil {
		errs = errors.Join(errs, e.gameInstance.FnShutdown())
	}
	for _, v := range e.views {
		errs = errors.Join(errs, v.OnDestroy())
	}
	errs = errors.Join(errs, e.renderer.Shutdown())
	errs = errors.Join(errs, e.systemManager.Shutdown())

	e.currentStage = EngineStageShutdown
	if errs != nil {
		core.LogError("engine shutdown: %s", errs.Error())
	}
	return errs
}
