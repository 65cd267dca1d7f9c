package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCacheDir is the cache location relative to the repository root.
const DefaultCacheDir = ".cartograph"

// Environment variables that override file settings.
const (
	EnvModel    = "CARTOGRAPH_MODEL"
	EnvCacheDir = "CARTOGRAPH_CACHE_DIR"
	EnvBackend  = "CARTOGRAPH_BACKEND"
)

// ProjectConfig holds project-level settings loaded from cartograph.yml.
type ProjectConfig struct {
	Model             string        `yaml:"model,omitempty"`
	MergeModel        string        `yaml:"mergeModel,omitempty"`
	Backend           string        `yaml:"backend,omitempty"`
	Concurrency       int           `yaml:"concurrency,omitempty"`
	MaxRounds         int           `yaml:"maxRounds,omitempty"`
	CoverageThreshold float64       `yaml:"coverageThreshold,omitempty"`
	ProbeTimeout      time.Duration `yaml:"probeTimeout,omitempty"`
	MergeTimeout      time.Duration `yaml:"mergeTimeout,omitempty"`
	CacheDir          string        `yaml:"cacheDir,omitempty"`
	UseCache          bool          `yaml:"useCache,omitempty"`
	Focus             string        `yaml:"focus,omitempty"`
	SeedsFile         string        `yaml:"seedsFile,omitempty"`
	ExcludeDirs       []string      `yaml:"excludeDirs,omitempty"`
	OutputDir         string        `yaml:"outputDir,omitempty"`
	StorePath         string        `yaml:"storePath,omitempty"`
	A2AEndpoints      []string      `yaml:"a2aEndpoints,omitempty"`
}

// Load attempts to read cartograph.yml or cartograph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"cartograph.yml", "cartograph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// ApplyEnv overlays environment overrides. getenv is usually os.Getenv.
func (c *ProjectConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := getenv(EnvBackend); v != "" {
		c.Backend = v
	}
}

// CacheRoot resolves CacheDir against repoRoot.
func (c *ProjectConfig) CacheRoot(repoRoot string) string {
	dir := c.CacheDir
	if dir == "" {
		dir = DefaultCacheDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(repoRoot, dir)
}
