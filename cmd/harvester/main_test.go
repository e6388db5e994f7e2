package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bidplus-harvester/internal/config"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["watch"])

	watch, _, err := root.Find([]string{"watch"})
	require.NoError(t, err)
	assert.NotNil(t, watch.Flags().Lookup("schedule"))
	assert.NotNil(t, watch.Flags().Lookup("keyword"))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"run", "--mode", "fuzzy"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestBuildDepsFileBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Pages:        1,
		Out:          filepath.Join(dir, "out.json"),
		StateBackend: config.BackendFile,
		StateFile:    filepath.Join(dir, "state.json"),
		PDFDir:       filepath.Join(dir, "pdfs"),
		BaseURL:      "http://127.0.0.1:1",
	}
	d, err := buildDeps(cfg, zap.NewNop())
	require.NoError(t, err)
	defer d.Close(zap.NewNop())
	assert.NotNil(t, d.pipeline)
	assert.Empty(t, d.closers)
}
