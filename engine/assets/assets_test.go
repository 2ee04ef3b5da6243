package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/systems"
)

type recordingSink struct {
	mu      sync.Mutex
	sources map[string]string
	removed []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{sources: make(map[string]string)}
}

func (s *recordingSink) SetShader(name string, source []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = string(source)
}

func (s *recordingSink) RemoveShader(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, name)
	s.removed = append(s.removed, name)
}

func (s *recordingSink) source(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[name]
	return src, ok
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitialLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "basic.vert"), "vertex")
	writeFile(t, filepath.Join(dir, "post", "tonemap.frag"), "fragment")
	writeFile(t, filepath.Join(dir, "README.md"), "not a shader")

	sink := newRecordingSink()
	sw, err := NewShaderWatcher(sink, nil)
	require.NoError(t, err)
	require.NoError(t, sw.Initialize(dir))
	defer sw.Close()

	assert.Equal(t, []string{"basic.vert", "post/tonemap.frag"}, sw.Shaders())
	src, ok := sink.source("post/tonemap.frag")
	require.True(t, ok)
	assert.Equal(t, "fragment", src)
	_, ok = sink.source("README.md")
	assert.False(t, ok)

	info, ok := sw.Info("basic.vert")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(sw.root, "basic.vert"), info.Path)
}

func TestHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basic.wgsl")
	writeFile(t, path, "v1")

	js, err := systems.NewJobSystem(1, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	sink := newRecordingSink()
	sw, err := NewShaderWatcher(sink, js)
	require.NoError(t, err)
	require.NoError(t, sw.Initialize(dir))
	defer sw.Close()

	assert.Eventually(t, func() bool {
		src, ok := sink.source("basic.wgsl")
		return ok && src == "v1"
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, path, "v2")
	assert.Eventually(t, func() bool {
		src, _ := sink.source("basic.wgsl")
		return src == "v2"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, ok := sink.source("basic.wgsl")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShaderExtensions(t *testing.T) {
	assert.True(t, IsShaderFile("a/b/c.frag"))
	assert.False(t, IsShaderFile("texture.png"))
	assert.Contains(t, ShaderExtensions(), ".wgsl")

	_, err := NewShaderWatcher(nil, nil)
	assert.Error(t, err)
}

func TestCloseFromManyGoroutines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sky.frag"), "void main() {}")

	sink := newRecordingSink()
	w, err := NewShaderWatcher(sink, nil)
	require.NoError(t, err)
	require.NoError(t, w.Initialize(dir))
	assert.Error(t, w.Initialize(dir))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Close())
		}()
	}
	wg.Wait()

	assert.Error(t, w.Initialize(dir))
	_, ok := sink.source("sky.frag")
	assert.True(t, ok)
}

func TestCloseWithoutInitialize(t *testing.T) {
	w, err := NewShaderWatcher(newRecordingSink(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
