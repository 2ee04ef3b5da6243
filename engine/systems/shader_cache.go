package systems

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

/** @brief Configuration for the shader cache. */
type ShaderCacheConfig struct {
	/** @brief The maximum number of shader sources held in the cache. */
	MaxShaderCount int
}

type shaderEntry struct {
	id         uint32
	name       string
	source     []byte
	generation uint32
	// compiled lazily by the first pipeline needing it
	module *metadata.ShaderModule
	// pipelines built against the current module
	pipelines map[metadata.PipelineID]struct{}
}

// ShaderCache holds shader sources by name and compiles them into modules on
// demand. It remembers which pipelines were built from which shader so that
// a source change invalidates exactly those pipelines.
type ShaderCache struct {
	Config ShaderCacheConfig
	// A lookup table for shader name->id
	Lookup map[string]uint32

	ids     *core.IdentifierPool
	shaders map[uint32]*shaderEntry
	device  metadata.Device
}

func NewShaderCache(config ShaderCacheConfig, device metadata.Device) (*ShaderCache, error) {
	if config.MaxShaderCount <= 0 {
		err := fmt.Errorf("NewShaderCache - config.MaxShaderCount must be greater than 0")
		core.LogError("%s", err.Error())
		return nil, err
	}
	if device == nil {
		return nil, fmt.Errorf("NewShaderCache - a device is required")
	}
	return &ShaderCache{
		Config:  config,
		Lookup:  make(map[string]uint32),
		ids:     core.NewIdentifierPool(config.MaxShaderCount),
		shaders: make(map[uint32]*shaderEntry),
		device:  device,
	}, nil
}

func (sc *ShaderCache) Len() int {
	return len(sc.shaders)
}

// Names returns the cached shader names, sorted.
func (sc *ShaderCache) Names() []string {
	names := maps.Keys(sc.Lookup)
	slices.Sort(names)
	return names
}

// Generation tells how many times the source of name was set.
func (sc *ShaderCache) Generation(name string) (uint32, bool) {
	id, ok := sc.Lookup[name]
	if !ok {
		return 0, false
	}
	return sc.shaders[id].generation, true
}

/**
 * @brief Stores or replaces the source of a shader.
 *
 * @param name The shader name, usually its file name.
 * @param source The shader source.
 * @return The pipelines built against the previous source. They must be rebuilt.
 */
func (sc *ShaderCache) Set(name string, source []byte) ([]metadata.PipelineID, error) {
	if name == "" {
		return nil, fmt.Errorf("shader cache: empty shader name")
	}

	if id, ok := sc.Lookup[name]; ok {
		entry := sc.shaders[id]
		stale, err := sc.invalidate(entry)
		entry.source = slices.Clone(source)
		entry.generation++
		core.LogDebug("shader '%s' updated to generation %d", name, entry.generation)
		return stale, err
	}

	if len(sc.shaders) >= sc.Config.MaxShaderCount {
		err := fmt.Errorf("shader cache is full (max=%d), cannot add '%s'", sc.Config.MaxShaderCount, name)
		core.LogError("%s", err.Error())
		return nil, err
	}

	entry := &shaderEntry{
		name:       name,
		source:     slices.Clone(source),
		generation: 1,
		pipelines:  make(map[metadata.PipelineID]struct{}),
	}
	entry.id = sc.ids.Acquire(entry)
	sc.shaders[entry.id] = entry
	sc.Lookup[name] = entry.id
	core.LogDebug("shader '%s' added with id %d", name, entry.id)
	return nil, nil
}

/**
 * @brief Drops a shader and its compiled module.
 *
 * @param name The shader name.
 * @return The pipelines that were built from it.
 */
func (sc *ShaderCache) Remove(name string) ([]metadata.PipelineID, error) {
	id, ok := sc.Lookup[name]
	if !ok {
		return nil, nil
	}
	entry := sc.shaders[id]
	stale, err := sc.invalidate(entry)

	delete(sc.Lookup, name)
	delete(sc.shaders, id)
	if relErr := sc.ids.Release(id); relErr != nil {
		err = errors.Join(err, relErr)
	}
	core.LogDebug("shader '%s' removed", name)
	return stale, err
}

/**
 * @brief Returns the compiled module of a shader, compiling it if needed,
 * and records pipeline as depending on it.
 */
func (sc *ShaderCache) Get(pipeline metadata.PipelineID, name string) (*metadata.ShaderModule, error) {
	id, ok := sc.Lookup[name]
	if !ok {
		return nil, fmt.Errorf("shader '%s': %w", name, core.ErrShaderNotFound)
	}
	entry := sc.shaders[id]
	// recorded before compiling so that fixing a broken source retries the pipeline
	entry.pipelines[pipeline] = struct{}{}

	if entry.module == nil {
		module, err := sc.device.CreateShaderModule(name, entry.source)
		if err != nil {
			return nil, fmt.Errorf("shader '%s' generation %d: %w", name, entry.generation, err)
		}
		module.ID = entry.id
		module.Generation = entry.generation
		entry.module = module
	}
	return entry.module, nil
}

// invalidate destroys the compiled module of entry and returns its dependents.
func (sc *ShaderCache) invalidate(entry *shaderEntry) ([]metadata.PipelineID, error) {
	stale := maps.Keys(entry.pipelines)
	slices.Sort(stale)
	clear(entry.pipelines)

	if entry.module == nil {
		return stale, nil
	}
	module := entry.module
	entry.module = nil
	if err := sc.device.DestroyShaderModule(module); err != nil {
		return stale, fmt.Errorf("shader '%s': %w", entry.name, err)
	}
	return stale, nil
}

/**
 * @brief Destroys every compiled module and forgets every shader.
 */
func (sc *ShaderCache) Shutdown() error {
	var errs error
	for _, name := range sc.Names() {
		if _, err := sc.Remove(name); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
