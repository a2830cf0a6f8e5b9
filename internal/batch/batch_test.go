package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/logging"
	"wcs-converter/internal/pipeline"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeConverter) Convert(_ context.Context, path string) (*pipeline.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	res := &pipeline.Result{File: path, Created: []string{path + ".tscn", path + ".obj"}}
	if strings.Contains(path, "broken") {
		return &pipeline.Result{File: path}, errors.New("invalid signature")
	}
	if strings.Contains(path, "untextured") {
		res.Artifacts = []pipeline.Artifact{{Kind: pipeline.ArtifactTexture, Name: "hull", Err: "not found"}}
	}
	return res, nil
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pof", "a.POF", "sub/c.pof", "notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}
	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.POF"),
		filepath.Join(dir, "b.pof"),
		filepath.Join(dir, "sub", "c.pof"),
	}, files)
}

func TestRun(t *testing.T) {
	conv := &fakeConverter{}
	files := []string{"rapier.pof", "broken.pof", "untextured.pof", "hornet.pof"}
	results := Run(context.Background(), conv, files, 3, logging.Discard())

	require.Len(t, results, 4)
	assert.Len(t, conv.calls, 4)
	for i, r := range results {
		assert.Equal(t, files[i], r.File, "results keep input order")
	}
	assert.False(t, results[1].Success)
	assert.Equal(t, "invalid signature", results[1].Error)
	assert.True(t, results[2].Success)

	rep := Summarize(results)
	assert.Equal(t, 4, rep.Processed)
	assert.Equal(t, 3, rep.Successful)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 6, rep.ArtifactsCreated)
	assert.Equal(t, []string{
		"broken.pof: invalid signature",
		"untextured.pof: texture hull: not found",
	}, rep.Errors)
	assert.False(t, rep.OK())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conv := &fakeConverter{}
	results := Run(ctx, conv, []string{"a.pof", "b.pof"}, 2, logging.Discard())
	assert.Empty(t, conv.calls)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Equal(t, context.Canceled.Error(), r.Error)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, WriteReport(path, Summarize(nil)))

	var got map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]any{
		"processed":         float64(0),
		"successful":        float64(0),
		"failed":            float64(0),
		"artifacts_created": float64(0),
		"errors":            []any{},
	}, got)
	assert.True(t, Summarize(nil).OK())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	conv := &fakeConverter{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 4)
	errc := make(chan error, 1)
	go func() { errc <- Watch(ctx, dir, conv, logging.Discard(), func(r Result) { results <- r }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	path := filepath.Join(dir, "rapier.pof")
	require.NoError(t, os.WriteFile(path, []byte("PSPO"), 0644))

	select {
	case r := <-results:
		assert.Equal(t, path, r.File)
		assert.True(t, r.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("no conversion after write")
	}
	cancel()
	require.NoError(t, <-errc)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	assert.Equal(t, []string{path}, conv.calls)
}
