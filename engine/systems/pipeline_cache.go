package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/containers"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// A pipeline waiting this long for its shaders gets a warning.
const pipelineWaitWarning = 5.0

type PipelineState int

const (
	PipelineStateQueued PipelineState = iota
	PipelineStateReady
	PipelineStateFailed
)

func (s PipelineState) String() string {
	switch s {
	case PipelineStateQueued:
		return "queued"
	case PipelineStateReady:
		return "ready"
	case PipelineStateFailed:
		return "failed"
	}
	return "unknown"
}

/** @brief Configuration for the pipeline cache. */
type PipelineCacheConfig struct {
	/** @brief Initial size of the creation queue. It grows when needed. */
	QueueSize int
	/** @brief The maximum number of shaders held by the shader cache. */
	MaxShaderCount int
}

type cachedPipeline struct {
	desc     metadata.RenderPipelineDescriptor
	state    PipelineState
	pipeline *metadata.RenderPipeline
	err      error
	// seconds spent queued, used to warn about missing shaders
	waited float64
	warned bool
	// already sitting in the creation queue
	inQueue bool
}

type shaderEvent struct {
	name   string
	source []byte
	remove bool
}

// PipelineCache creates render pipelines in the background of the frame loop.
// Registering a pipeline only queues it: it becomes visible to passes once an
// Update managed to build it. Shader changes can be posted from any goroutine
// and are applied on the next Update.
type PipelineCache struct {
	device  metadata.Device
	shaders *ShaderCache

	pipelines []*cachedPipeline
	lookup    map[metadata.RenderPipelineDescriptor]metadata.PipelineID
	waiting   *containers.RingQueue[metadata.PipelineID]

	mu     sync.Mutex
	events []shaderEvent
}

func NewPipelineCache(config PipelineCacheConfig, device metadata.Device) (*PipelineCache, error) {
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("NewPipelineCache - config.QueueSize must be greater than 0")
	}
	shaders, err := NewShaderCache(ShaderCacheConfig{MaxShaderCount: config.MaxShaderCount}, device)
	if err != nil {
		return nil, err
	}
	return &PipelineCache{
		device:  device,
		shaders: shaders,
		lookup:  make(map[metadata.RenderPipelineDescriptor]metadata.PipelineID),
		waiting: containers.NewGrowableRingQueue[metadata.PipelineID](config.QueueSize),
	}, nil
}

func (pc *PipelineCache) Shaders() *ShaderCache {
	return pc.shaders
}

func (pc *PipelineCache) Len() int {
	return len(pc.pipelines)
}

// Pending counts the pipelines waiting to be built.
func (pc *PipelineCache) Pending() int {
	return pc.waiting.Len()
}

/**
 * @brief Registers a render pipeline. Equal descriptors share one id.
 *
 * @param desc The pipeline descriptor.
 * @return The pipeline id, usable right away with GetRenderPipeline.
 */
func (pc *PipelineCache) RegisterRenderPipeline(desc metadata.RenderPipelineDescriptor) (metadata.PipelineID, error) {
	if err := desc.Validate(); err != nil {
		return metadata.InvalidPipelineID, err
	}
	if id, ok := pc.lookup[desc]; ok {
		return id, nil
	}

	id := metadata.PipelineID(len(pc.pipelines))
	pc.pipelines = append(pc.pipelines, &cachedPipeline{desc: desc})
	pc.lookup[desc] = id
	if err := pc.enqueue(id); err != nil {
		return metadata.InvalidPipelineID, err
	}
	core.LogDebug("render pipeline '%s' registered with id %d", desc.Label, id)
	return id, nil
}

// GetRenderPipeline returns the pipeline once it is built.
func (pc *PipelineCache) GetRenderPipeline(id metadata.PipelineID) (*metadata.RenderPipeline, bool) {
	if int(id) >= len(pc.pipelines) {
		return nil, false
	}
	p := pc.pipelines[id]
	if p.state != PipelineStateReady {
		return nil, false
	}
	return p.pipeline, true
}

// State returns the state of a pipeline and, when it failed, why.
func (pc *PipelineCache) State(id metadata.PipelineID) (PipelineState, error) {
	if int(id) >= len(pc.pipelines) {
		return PipelineStateFailed, fmt.Errorf("pipeline %d: %w", id, core.ErrPipelineNotFound)
	}
	p := pc.pipelines[id]
	return p.state, p.err
}

// SetShader posts a new source for a shader. Safe for concurrent use.
func (pc *PipelineCache) SetShader(name string, source []byte) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.events = append(pc.events, shaderEvent{name: name, source: source})
}

// RemoveShader posts the removal of a shader. Safe for concurrent use.
func (pc *PipelineCache) RemoveShader(name string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.events = append(pc.events, shaderEvent{name: name, remove: true})
}

/**
 * @brief Applies the posted shader changes and tries to build every queued
 * pipeline. Should happen once per frame, before the frame graph is built.
 *
 * @param dt The time elapsed since the last update, in seconds.
 */
func (pc *PipelineCache) Update(dt float64) error {
	var errs error
	if err := pc.applyShaderEvents(); err != nil {
		errs = errors.Join(errs, err)
	}

	// pipelines put back while draining wait for the next update
	for n := pc.waiting.Len(); n > 0; n-- {
		id, err := pc.waiting.Dequeue()
		if err != nil {
			break
		}
		p := pc.pipelines[id]
		p.inQueue = false
		if p.state != PipelineStateQueued {
			continue
		}
		if pc.build(id, p, dt) {
			continue
		}
		if err := pc.enqueue(id); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (pc *PipelineCache) applyShaderEvents() error {
	pc.mu.Lock()
	events := pc.events
	pc.events = nil
	pc.mu.Unlock()

	var errs error
	for _, ev := range events {
		var stale []metadata.PipelineID
		var err error
		if ev.remove {
			stale, err = pc.shaders.Remove(ev.name)
		} else {
			stale, err = pc.shaders.Set(ev.name, ev.source)
		}
		if err != nil {
			core.LogError("%s", err.Error())
			errs = errors.Join(errs, err)
		}
		for _, id := range stale {
			if err := pc.requeue(id); err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}
	return errs
}

// build tries to create the pipeline. It reports false when a shader is not
// available yet and the pipeline must be retried later.
func (pc *PipelineCache) build(id metadata.PipelineID, p *cachedPipeline, dt float64) bool {
	vertex, err := pc.shaders.Get(id, p.desc.VertexShader)
	if err != nil {
		return pc.handleShaderError(p, err, dt)
	}
	var fragment *metadata.ShaderModule
	if p.desc.FragmentShader != "" {
		fragment, err = pc.shaders.Get(id, p.desc.FragmentShader)
		if err != nil {
			return pc.handleShaderError(p, err, dt)
		}
	}

	pipeline, err := pc.device.CreateRenderPipeline(p.desc, vertex, fragment)
	if err != nil {
		pc.fail(p, err)
		return true
	}
	pipeline.ID = id
	p.pipeline = pipeline
	p.state = PipelineStateReady
	p.err = nil
	p.waited = 0
	p.warned = false
	core.LogInfo("render pipeline '%s' is ready", p.desc.Label)
	return true
}

func (pc *PipelineCache) handleShaderError(p *cachedPipeline, err error, dt float64) bool {
	if !errors.Is(err, core.ErrShaderNotFound) {
		pc.fail(p, err)
		return true
	}
	p.waited += dt
	if p.waited > pipelineWaitWarning && !p.warned {
		core.LogWarn("render pipeline '%s' has been waiting %.1fs for its shaders: %s", p.desc.Label, p.waited, err.Error())
		p.warned = true
	}
	return false
}

func (pc *PipelineCache) fail(p *cachedPipeline, err error) {
	p.state = PipelineStateFailed
	p.err = err
	p.pipeline = nil
	core.LogError("render pipeline '%s' failed: %s", p.desc.Label, err.Error())
}

// requeue throws the pipeline away so it gets rebuilt with the current shaders.
func (pc *PipelineCache) requeue(id metadata.PipelineID) error {
	if int(id) >= len(pc.pipelines) {
		return fmt.Errorf("pipeline %d: %w", id, core.ErrPipelineNotFound)
	}
	p := pc.pipelines[id]
	p.state = PipelineStateQueued
	p.pipeline = nil
	p.err = nil
	p.waited = 0
	p.warned = false
	return pc.enqueue(id)
}

func (pc *PipelineCache) enqueue(id metadata.PipelineID) error {
	p := pc.pipelines[id]
	if p.inQueue {
		return nil
	}
	if err := pc.waiting.Enqueue(id); err != nil {
		return err
	}
	p.inQueue = true
	return nil
}

func (pc *PipelineCache) Shutdown() error {
	for _, p := range pc.pipelines {
		p.pipeline = nil
		p.state = PipelineStateQueued
	}
	return pc.shaders.Shutdown()
}
