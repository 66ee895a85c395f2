package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 15.0, cfg.Rules.AttachThreshold)
	assert.Equal(t, Size{Width: 140, Height: 120}, cfg.Rules.MinSize.Stage)
}

func TestLoad_MergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cmmnedit.yaml", `
log:
  level: debug
history:
  limit: 50
rules:
  attachThreshold: 10
graph:
  backend: kuzu
  path: /tmp/doc.kuzu
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 50, cfg.History.Limit)
	assert.Equal(t, 10.0, cfg.Rules.AttachThreshold)
	assert.Equal(t, Size{Width: 100, Height: 80}, cfg.Rules.MinSize.Generic)
	assert.Equal(t, "kuzu", cfg.Graph.Backend)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad level", body: "log:\n  level: loud\n"},
		{name: "negative history", body: "history:\n  limit: -1\n"},
		{name: "kuzu without path", body: "graph:\n  backend: kuzu\n"},
		{name: "zero min size", body: "rules:\n  minSize:\n    stage:\n      width: 0\n      height: 10\n"},
		{name: "not yaml", body: "log: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "cmmnedit.yml", tt.body)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
