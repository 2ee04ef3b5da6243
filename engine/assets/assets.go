package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

// ShaderSink receives shader sources as they appear, change or disappear on disk.
type ShaderSink interface {
	SetShader(name string, source []byte)
	RemoveShader(name string)
}

type ShaderInfo struct {
	Path       string
	Name       string
	LastLoaded time.Time
}

// ShaderWatcher keeps a shader directory in sync with a ShaderSink, which is
// what makes shader hot reload work.
type ShaderWatcher struct {
	root    string
	shaders map[string]ShaderInfo
	sink    ShaderSink
	jobs    *systems.JobSystem

	mutex sync.RWMutex

	// lifecycle guards isStarted and isClosed
	lifecycle sync.Mutex
	isStarted bool
	isClosed  bool

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
}

// NewShaderWatcher builds a watcher feeding sink. Files are read on jobs when
// given, inline otherwise.
func NewShaderWatcher(sink ShaderSink, jobs *systems.JobSystem) (*ShaderWatcher, error) {
	if sink == nil {
		return nil, errors.New("shader watcher needs a sink")
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ShaderWatcher{
		shaders:  make(map[string]ShaderInfo),
		sink:     sink,
		jobs:     jobs,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize loads every shader under dir and starts watching it.
func (sw *ShaderWatcher) Initialize(dir string) error {
	sw.lifecycle.Lock()
	defer sw.lifecycle.Unlock()
	if sw.isClosed {
		return errors.New("shader watcher already closed")
	}
	if sw.isStarted {
		return errors.New("shader watcher already initialized")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	sw.root = root

	if err := sw.watchRecursive(root); err != nil {
		return err
	}
	go sw.start()
	sw.isStarted = true
	core.LogInfo("watching shaders in %s", root)
	return nil
}

// Shaders lists the names of the known shaders, sorted.
func (sw *ShaderWatcher) Shaders() []string {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()
	names := make([]string, 0, len(sw.shaders))
	for _, info := range sw.shaders {
		names = append(names, info.Name)
	}
	slices.Sort(names)
	return names
}

func (sw *ShaderWatcher) Info(name string) (ShaderInfo, bool) {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()
	for _, info := range sw.shaders {
		if info.Name == name {
			return info, true
		}
	}
	return ShaderInfo{}, false
}

// Close stops watching. It is safe to call more than once and from any goroutine.
func (sw *ShaderWatcher) Close() error {
	sw.lifecycle.Lock()
	if sw.isClosed {
		sw.lifecycle.Unlock()
		return nil
	}
	sw.isClosed = true
	started := sw.isStarted
	close(sw.done)
	sw.lifecycle.Unlock()

	if !started {
		return sw.fsnotify.Close()
	}
	<-sw.stopped
	return nil
}

func (sw *ShaderWatcher) start() {
	defer close(sw.stopped)
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handleEvent(e)

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err.Error())

		case <-sw.done:
			sw.fsnotify.Close()
			return
		}
	}
}

func (sw *ShaderWatcher) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := sw.watchRecursive(e.Name); err != nil {
				core.LogError("shader watcher: %s", err.Error())
			}
		}
		return
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		sw.loadShader(e.Name)
	}
	// a rename shows up as a remove of the old name and a create of the new one
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		sw.removeShader(e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and loads the shaders found on the way.
func (sw *ShaderWatcher) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		sw.loadShader(walkPath)
		return nil
	})
}

func (sw *ShaderWatcher) loadShader(path string) {
	if !IsShaderFile(path) {
		return
	}
	name, err := sw.shaderName(path)
	if err != nil {
		core.LogError("shader watcher: %s", err.Error())
		return
	}

	load := func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read shader %s: %w", name, err)
		}
		sw.mutex.Lock()
		sw.shaders[path] = ShaderInfo{Path: path, Name: name, LastLoaded: time.Now()}
		sw.mutex.Unlock()
		sw.sink.SetShader(name, data)
		core.LogDebug("shader %s loaded (%d bytes)", name, len(data))
		return nil
	}

	if sw.jobs == nil {
		if err := load(); err != nil {
			core.LogError("%s", err.Error())
		}
		return
	}
	if err := sw.jobs.Submit(systems.Job{Name: "load " + name, Run: load}); err != nil {
		core.LogError("shader watcher: %s", err.Error())
	}
}

func (sw *ShaderWatcher) removeShader(path string) {
	sw.mutex.Lock()
	info, ok := sw.shaders[path]
	delete(sw.shaders, path)
	sw.mutex.Unlock()
	if !ok {
		return
	}
	sw.sink.RemoveShader(info.Name)
	core.LogDebug("shader %s removed", info.Name)
}

// shaderName is the slash separated path of the file relative to the watched root.
func (sw *ShaderWatcher) shaderName(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(sw.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

var shaderExtensions = map[string]struct{}{
	".wgsl": {},
	".glsl": {},
	".vert": {},
	".frag": {},
	".comp": {},
	".spv":  {},
}

// ShaderExtensions lists the file extensions treated as shaders.
func ShaderExtensions() []string {
	exts := maps.Keys(shaderExtensions)
	slices.Sort(exts)
	return exts
}

func IsShaderFile(path string) bool {
	_, ok := shaderExtensions[filepath.Ext(path)]
	return ok
}
