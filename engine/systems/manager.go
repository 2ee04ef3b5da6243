package systems

import (
	"runtime"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

const maxShaderCount = 512

type SystemManager struct {
	jobSystem     *JobSystem
	pipelineCache *PipelineCache
}

func NewSystemManager(config *core.EngineConfig, device metadata.Device) (*SystemManager, error) {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	js, err := NewJobSystem(workers, config.Pipelines.QueueSize)
	if err != nil {
		return nil, err
	}

	pc, err := NewPipelineCache(PipelineCacheConfig{
		QueueSize:      config.Pipelines.QueueSize,
		MaxShaderCount: maxShaderCount,
	}, device)
	if err != nil {
		_ = js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		jobSystem:     js,
		pipelineCache: pc,
	}, nil
}

func (sm *SystemManager) JobSystem() *JobSystem {
	return sm.jobSystem
}

func (sm *SystemManager) PipelineCache() *PipelineCache {
	return sm.pipelineCache
}

/**
 * @brief Updates the systems. Should happen once an update cycle.
 */
func (sm *SystemManager) Update(dt float64) error {
	return sm.pipelineCache.Update(dt)
}

func (sm *SystemManager) Shutdown() error {
	// jobs may still post shader changes, stop them first
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.pipelineCache.Shutdown(); err != nil {
		return err
	}
	return nil
}
