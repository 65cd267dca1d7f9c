package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dusk-indust/cartograph/internal/a2a"
	"github.com/dusk-indust/cartograph/internal/config"
	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/seeds"
)

// EnvAPIKey enables the Anthropic backend.
const EnvAPIKey = "ANTHROPIC_API_KEY"

// graphFile is the exported graph written after every exploration.
const graphFile = "module-graph.json"

// workspace is a repository together with its resolved settings.
type workspace struct {
	root   string
	cfg    *config.ProjectConfig
	getenv func(string) string
	logger *slog.Logger
}

func openWorkspace(repo string, getenv func(string) string, logger *slog.Logger) (*workspace, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving repository: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository %s is not a directory", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)
	if logger == nil {
		logger = slog.Default()
	}
	return &workspace{root: root, cfg: cfg, getenv: getenv, logger: logger}, nil
}

func (w *workspace) cacheDir() string { return w.cfg.CacheRoot(w.root) }

// outputDir defaults to the cache directory.
func (w *workspace) outputDir() string {
	if w.cfg.OutputDir == "" {
		return w.cacheDir()
	}
	return w.resolve(w.cfg.OutputDir)
}

func (w *workspace) graphPath() string { return filepath.Join(w.outputDir(), graphFile) }

// storePath is empty when no persistent graph store is configured.
func (w *workspace) storePath() string {
	if w.cfg.StorePath == "" {
		return ""
	}
	return w.resolve(w.cfg.StorePath)
}

func (w *workspace) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.root, p)
}

// selectEngine honours the configured backend, detecting one when it is
// unset or "auto".
func (w *workspace) selectEngine(ctx context.Context) (engine.Selection, error) {
	backend, auto, err := engine.ParseBackend(w.cfg.Backend)
	if err != nil {
		return engine.Selection{}, err
	}
	d := &engine.Detector{
		APIKey:    w.getenv(EnvAPIKey),
		Model:     w.cfg.Model,
		Endpoints: w.cfg.A2AEndpoints,
		Client:    a2a.NewHTTPClient(),
		Logger:    w.logger,
	}
	if auto {
		return d.Detect(ctx), nil
	}
	return d.Force(ctx, backend)
}

// loadSeeds reads seedsFile (or the configured one) and falls back to a
// directory scan.
func (w *workspace) loadSeeds(seedsFile string) ([]graph.TopicSeed, error) {
	if seedsFile == "" {
		seedsFile = w.cfg.SeedsFile
	}
	if seedsFile != "" {
		return seeds.LoadFile(w.resolve(seedsFile))
	}
	found, err := seeds.ScanDirectories(w.root, w.cfg.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no directories to explore under %s; pass --seeds", seeds.ErrNoSeeds, w.root)
	}
	return found, nil
}
