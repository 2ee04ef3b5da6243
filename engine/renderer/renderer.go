package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/google/uuid"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// PresentTarget is the board entry holding the swap chain image of the frame.
const PresentTarget = "present-target"

const swapChainFormat = gputypes.TextureFormatBGRA8Unorm

// Renderer owns everything that outlives a single frame graph: the device,
// the transient pool, the temporal resources and, when configured, the board.
type Renderer struct {
	appName string
	width   uint32
	height  uint32

	device    metadata.Device
	pipelines framegraph.PipelineSource
	metrics   *core.Metrics

	cache    *framegraph.TransientResourceCache
	temporal *framegraph.TemporalResources
	board    *framegraph.ResourceBoard

	graph *framegraph.FrameGraph
	frame uint64
}

func New(config *core.EngineConfig, device metadata.Device, pipelines framegraph.PipelineSource, metrics *core.Metrics) (*Renderer, error) {
	if device == nil {
		return nil, errors.New("renderer needs a device")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{
		appName:   config.Application.Name,
		width:     config.Renderer.Width,
		height:    config.Renderer.Height,
		device:    device,
		pipelines: pipelines,
		metrics:   metrics,
		cache:     framegraph.NewTransientResourceCache(config.Renderer.MaxIdleFrames),
		temporal:  framegraph.NewTemporalResources(device),
	}
	if config.Renderer.PersistBoard {
		r.board = framegraph.NewResourceBoard()
	}
	core.LogInfo("renderer initialized at %dx%d", r.width, r.height)
	return r, nil
}

func (r *Renderer) Size() (uint32, uint32) {
	return r.width, r.height
}

func (r *Renderer) Frame() uint64 {
	return r.frame
}

func (r *Renderer) Cache() *framegraph.TransientResourceCache {
	return r.cache
}

func (r *Renderer) Temporal() *framegraph.TemporalResources {
	return r.temporal
}

// OnResize changes the swap chain size used from the next frame on.
func (r *Renderer) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("renderer resize to %dx%d: %w", width, height, core.ErrInvalidDescriptor)
	}
	r.width, r.height = width, height
	core.LogDebug("renderer resized to %dx%d", width, height)
	return nil
}

// SwapChainDescriptor describes the presentable image of the current size.
func (r *Renderer) SwapChainDescriptor() metadata.Descriptor {
	return metadata.SwapChainDesc(metadata.SwapChainDescriptor{
		Width:  r.width,
		Height: r.height,
		Format: swapChainFormat,
	})
}

/**
 * @brief Starts a new frame graph. The swap chain image of the frame is
 * declared up front and published on the board under PresentTarget.
 *
 * @return The graph the frame passes are declared on.
 */
func (r *Renderer) BeginFrame() (*framegraph.FrameGraph, error) {
	if r.graph != nil {
		return nil, fmt.Errorf("frame %d is still open", r.frame)
	}
	label := fmt.Sprintf("%s-frame-%d-%s", r.appName, r.frame, uuid.NewString()[:8])
	fg := framegraph.NewWithBoard(label, r.board)

	target, err := framegraph.CreateResource[*metadata.SwapChainImage](fg, "swapchain", r.SwapChainDescriptor())
	if err != nil {
		return nil, err
	}
	fg.Board().Put(PresentTarget, target.Raw())
	r.graph = fg
	return fg, nil
}

/**
 * @brief Compiles and executes the frame graph opened by BeginFrame, then
 * ages the transient pool.
 *
 * @return The report of the executed passes. Failed passes do not make
 * DrawFrame fail, a graph that does not compile does.
 */
func (r *Renderer) DrawFrame() (*framegraph.FrameReport, error) {
	fg := r.graph
	if fg == nil {
		return nil, errors.New("DrawFrame called without BeginFrame")
	}
	r.graph = nil
	r.frame++

	if err := fg.Compile(); err != nil {
		core.LogError("frame graph %s does not compile: %s", fg.Label(), err.Error())
		return nil, err
	}

	report, err := fg.Execute(framegraph.ExecuteContext{
		Device:    r.device,
		Cache:     r.cache,
		Pipelines: r.pipelines,
		Metrics:   r.metrics,
	})
	if err != nil {
		return nil, err
	}
	if failed := report.Failed(); len(failed) > 0 {
		core.LogWarn("frame %s: %d passes failed: %v", report.Label, len(failed), failed)
	}

	evicted, err := r.cache.EndFrame(r.device)
	r.metrics.CacheEvicted(evicted)
	r.metrics.CachePooled(r.cache.Len())
	if err != nil {
		core.LogError("transient cache eviction: %s", err.Error())
	}
	return report, nil
}

// Shutdown destroys every pooled and temporal resource.
func (r *Renderer) Shutdown() error {
	r.graph = nil
	var errs error
	if err := r.cache.Clear(r.device); err != nil {
		errs = errors.Join(errs, err)
	}
	if err := r.temporal.Destroy(); err != nil {
		errs = errors.Join(errs, err)
	}
	if r.board != nil {
		r.board.Clear()
	}
	return errs
}
