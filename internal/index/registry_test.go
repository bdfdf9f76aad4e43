package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfquery/internal/engine"
)

// countingEngine records build invocations and can block until released.
type countingEngine struct {
	builds  atomic.Int32
	release chan struct{}
	err     error
}

func (e *countingEngine) BuildIndex(_ context.Context, text string) (*engine.Artifact, error) {
	e.builds.Add(1)
	if e.release != nil {
		<-e.release
	}
	if e.err != nil {
		return nil, e.err
	}
	return &engine.Artifact{Chunks: []engine.Chunk{{Content: text, Embedding: []float32{1}}}}, nil
}

func (e *countingEngine) Answer(context.Context, *engine.Artifact, string) (string, error) {
	return "", errors.New("not used")
}

func TestNameRoundTrip(t *testing.T) {
	assert.Equal(t, "index_42", Name(42))

	id, ok := ParseName("index_42")
	require.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ParseName("artifact_42")
	assert.False(t, ok)
	_, ok = ParseName("index_abc")
	assert.False(t, ok)
}

func TestEnsureBuildsThenReuses(t *testing.T) {
	eng := &countingEngine{}
	registry, err := NewRegistry(t.TempDir(), eng)
	require.NoError(t, err)

	ctx := context.Background()
	name, err := registry.Ensure(ctx, 7, "some document text")
	require.NoError(t, err)
	assert.Equal(t, "index_7", name)
	assert.Equal(t, int32(1), eng.builds.Load())

	again, err := registry.Ensure(ctx, 7, "some document text")
	require.NoError(t, err)
	assert.Equal(t, name, again)
	assert.Equal(t, int32(1), eng.builds.Load(), "unchanged content must not rebuild")

	artifact, err := registry.Load(name)
	require.NoError(t, err)
	require.Len(t, artifact.Chunks, 1)
	assert.Equal(t, "some document text", artifact.Chunks[0].Content)
}

func TestEnsureRebuildsOnContentChange(t *testing.T) {
	eng := &countingEngine{}
	registry, err := NewRegistry(t.TempDir(), eng)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = registry.Ensure(ctx, 7, "version one")
	require.NoError(t, err)
	_, err = registry.Ensure(ctx, 7, "version two")
	require.NoError(t, err)
	assert.Equal(t, int32(2), eng.builds.Load())

	artifact, err := registry.Load("index_7")
	require.NoError(t, err)
	assert.Equal(t, "version two", artifact.Chunks[0].Content)
}

func TestConcurrentEnsureBuildsOnce(t *testing.T) {
	eng := &countingEngine{release: make(chan struct{})}
	registry, err := NewRegistry(t.TempDir(), eng)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = registry.Ensure(context.Background(), 3, "shared content")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(eng.release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), eng.builds.Load(), "exactly one build for concurrent callers")
}

func TestFailedBuildLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	eng := &countingEngine{err: errors.New("engine exploded")}
	registry, err := NewRegistry(dir, eng)
	require.NoError(t, err)

	_, err = registry.Ensure(context.Background(), 5, "doomed")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "index_5"))
	assert.True(t, os.IsNotExist(statErr), "no partial artifact may be discoverable")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp build dirs must be cleaned up")

	// recovery: a later call with a healthy engine builds normally
	eng.err = nil
	name, err := registry.Ensure(context.Background(), 5, "doomed")
	require.NoError(t, err)
	_, err = registry.Load(name)
	assert.NoError(t, err)
}

func TestLoadMissingArtifact(t *testing.T) {
	registry, err := NewRegistry(t.TempDir(), &countingEngine{})
	require.NoError(t, err)

	_, err = registry.Load("index_404")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestRemoveArtifact(t *testing.T) {
	registry, err := NewRegistry(t.TempDir(), &countingEngine{})
	require.NoError(t, err)

	name, err := registry.Ensure(context.Background(), 9, "text")
	require.NoError(t, err)

	require.NoError(t, registry.Remove(name))
	_, err = registry.Load(name)
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	assert.NoError(t, registry.Remove(name), "removing an absent artifact is fine")
}
