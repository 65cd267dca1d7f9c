package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, cfg)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cartograph.yaml"), []byte(`
model: claude-sonnet-4-5
concurrency: 2
maxRounds: 4
coverageThreshold: 0.9
probeTimeout: 90s
mergeTimeout: 3m
useCache: true
excludeDirs: [docs, "internal/legacy/**"]
a2aEndpoints:
  - http://localhost:9100
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 4, cfg.MaxRounds)
	assert.Equal(t, 0.9, cfg.CoverageThreshold)
	assert.Equal(t, 90*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 3*time.Minute, cfg.MergeTimeout)
	assert.True(t, cfg.UseCache)
	assert.Equal(t, []string{"docs", "internal/legacy/**"}, cfg.ExcludeDirs)
	assert.Equal(t, []string{"http://localhost:9100"}, cfg.A2AEndpoints)
}

func TestLoad_PrefersYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cartograph.yml"), []byte("model: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cartograph.yaml"), []byte("model: b\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Model)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cartograph.yml"), []byte("concurrency: [oops"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvModel: "env-model", EnvCacheDir: "/tmp/cache"}
	cfg := &ProjectConfig{Model: "file-model", Backend: "a2a"}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "env-model", cfg.Model)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, "a2a", cfg.Backend)
}

func TestCacheRoot(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", DefaultCacheDir), (&ProjectConfig{}).CacheRoot("/repo"))
	assert.Equal(t, filepath.Join("/repo", "tmp/c"), (&ProjectConfig{CacheDir: "tmp/c"}).CacheRoot("/repo"))
	assert.Equal(t, "/abs/c", (&ProjectConfig{CacheDir: "/abs/c"}).CacheRoot("/repo"))
}
