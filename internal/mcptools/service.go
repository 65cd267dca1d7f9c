package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/export"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/orchestrator"
	"github.com/dusk-indust/cartograph/internal/repostate"
	"github.com/dusk-indust/cartograph/internal/status"
)

// ErrNoGraph is returned by graph queries before any graph is available.
var ErrNoGraph = errors.New("mcptools: no module graph; run explore first")

// Explorer runs one exploration. It is supplied by the caller so the
// service never owns engine or cache wiring.
type Explorer func(ctx context.Context, in ExploreInput) (*orchestrator.Outcome, error)

// Config configures a Service.
type Config struct {
	// RepoRoot confines the file tools and is hashed for progress checks.
	RepoRoot string
	CacheDir string
	// GraphPath is an exported graph loaded on first use when no
	// exploration has run in this process.
	GraphPath string
	// StorePath selects a persistent graph store; empty means in-memory.
	StorePath string
	Explore   Explorer
	Logger    *slog.Logger
}

// Service holds the state behind the MCP tool handlers.
type Service struct {
	cfg     Config
	toolbox *engine.Toolbox
	logger  *slog.Logger

	mu    sync.Mutex
	graph *graph.ModuleGraph
	store graph.Store
}

// NewService creates a Service whose file tools are confined to
// cfg.RepoRoot and gated read-only.
func NewService(cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	files, err := engine.NewFileTools(cfg.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("mcptools: %w", err)
	}
	return &Service{
		cfg:     cfg,
		toolbox: engine.NewToolbox(files, engine.ReadOnly(), engine.ReadOnlyGate, logger),
		logger:  logger,
	}, nil
}

// Close releases the graph store.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// SetGraph replaces the graph served by the query tools. A persistent
// store at StorePath is rebuilt from scratch.
func (s *Service) SetGraph(ctx context.Context, g graph.ModuleGraph) error {
	g = g.Clone()
	graph.Normalize(&g)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
	if s.cfg.StorePath != "" {
		if err := os.RemoveAll(s.cfg.StorePath); err != nil {
			return fmt.Errorf("mcptools: reset store: %w", err)
		}
	}

	store, err := graph.OpenStore(s.cfg.StorePath)
	if err != nil {
		return fmt.Errorf("mcptools: open store: %w", err)
	}
	if err := graph.Persist(ctx, store, g); err != nil {
		store.Close()
		return fmt.Errorf("mcptools: persist graph: %w", err)
	}
	s.graph = &g
	s.store = store
	return nil
}

// current returns the served graph and store, loading GraphPath lazily.
func (s *Service) current(ctx context.Context) (*graph.ModuleGraph, graph.Store, error) {
	s.mu.Lock()
	g, store := s.graph, s.store
	s.mu.Unlock()
	if g != nil {
		return g, store, nil
	}
	if s.cfg.GraphPath == "" {
		return nil, nil, ErrNoGraph
	}
	doc, err := export.ReadJSON(s.cfg.GraphPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoGraph, err)
	}
	if err := s.SetGraph(ctx, doc.Graph); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph, s.store, nil
}

// ---------------------------------------------------------------------------
// Read-only file tools
// ---------------------------------------------------------------------------

// ViewFile reads a file or lists a directory.
func (s *Service) ViewFile(ctx context.Context, _ *mcp.CallToolRequest, input ViewFileInput) (*mcp.CallToolResult, FileToolOutput, error) {
	return s.callTool(ctx, engine.ToolViewFile, input)
}

// SearchFiles searches file contents.
func (s *Service) SearchFiles(ctx context.Context, _ *mcp.CallToolRequest, input SearchFilesInput) (*mcp.CallToolResult, FileToolOutput, error) {
	return s.callTool(ctx, engine.ToolSearchFiles, input)
}

// GlobFiles lists files matching a glob.
func (s *Service) GlobFiles(ctx context.Context, _ *mcp.CallToolRequest, input GlobFilesInput) (*mcp.CallToolResult, FileToolOutput, error) {
	return s.callTool(ctx, engine.ToolGlobFiles, input)
}

func (s *Service) callTool(ctx context.Context, name string, input any) (*mcp.CallToolResult, FileToolOutput, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, FileToolOutput{}, fmt.Errorf("%s: %w", name, err)
	}
	out, err := s.toolbox.Call(ctx, name, raw)
	if err != nil {
		return nil, FileToolOutput{}, err
	}
	return nil, FileToolOutput{Content: out}, nil
}

// ---------------------------------------------------------------------------
// Exploration and graph queries
// ---------------------------------------------------------------------------

// Explore runs an exploration and serves its graph afterwards.
func (s *Service) Explore(ctx context.Context, _ *mcp.CallToolRequest, input ExploreInput) (*mcp.CallToolResult, ExploreOutput, error) {
	if s.cfg.Explore == nil {
		return nil, ExploreOutput{}, fmt.Errorf("explore is not configured")
	}
	start := time.Now()
	out, err := s.cfg.Explore(ctx, input)
	if err != nil {
		return nil, ExploreOutput{}, fmt.Errorf("explore: %w", err)
	}
	if err := s.SetGraph(ctx, out.Graph); err != nil {
		return nil, ExploreOutput{}, err
	}
	s.logger.Info("explore finished via mcp", "rounds", out.Rounds, "modules", len(out.Graph.Modules), "elapsed", time.Since(start))

	return nil, ExploreOutput{
		Rounds:      out.Rounds,
		Converged:   out.Converged,
		Coverage:    out.Coverage,
		Reason:      out.Reason,
		ModuleCount: len(out.Graph.Modules),
		Probes:      out.Probes,
		CacheHits:   out.CacheHits,
	}, nil
}

// GetModuleGraph returns the served graph, optionally filtered to one
// category.
func (s *Service) GetModuleGraph(ctx context.Context, _ *mcp.CallToolRequest, input GetModuleGraphInput) (*mcp.CallToolResult, GetModuleGraphOutput, error) {
	g, store, err := s.current(ctx)
	if err != nil {
		return nil, GetModuleGraphOutput{}, err
	}
	out := g.Clone()
	if input.Category != "" {
		mods, err := store.ListModules(ctx, input.Category)
		if err != nil {
			return nil, GetModuleGraphOutput{}, fmt.Errorf("list modules: %w", err)
		}
		if mods == nil {
			mods = []graph.ModuleInfo{}
		}
		out.Modules = mods
		cats := []graph.CategoryInfo{}
		for _, c := range g.Categories {
			if c.Name == input.Category {
				cats = append(cats, c)
			}
		}
		out.Categories = cats
	}
	return nil, GetModuleGraphOutput{Graph: out}, nil
}

// GetDependencies traverses module dependencies from one module.
func (s *Service) GetDependencies(ctx context.Context, _ *mcp.CallToolRequest, input GetDependenciesInput) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.ModuleID == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("moduleId is required")
	}
	direction, err := graph.ParseDirection(input.Direction)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	_, store, err := s.current(ctx)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}
	chains, err := store.GetDependencies(ctx, input.ModuleID, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// GetProgress summarizes the cache directory.
func (s *Service) GetProgress(ctx context.Context, _ *mcp.CallToolRequest, _ GetProgressInput) (*mcp.CallToolResult, GetProgressOutput, error) {
	if s.cfg.CacheDir == "" {
		return nil, GetProgressOutput{}, fmt.Errorf("no cache directory configured")
	}
	hash, err := repostate.ContentHash(ctx, s.cfg.RepoRoot)
	if err != nil {
		s.logger.Warn("content hash failed", "err", err)
	}
	sum, err := status.Load(s.cfg.CacheDir, hash)
	if err != nil {
		return nil, GetProgressOutput{}, fmt.Errorf("load status: %w", err)
	}

	out := GetProgressOutput{
		HasProgress:     sum.HasProgress,
		Current:         sum.Current,
		CurrentRound:    sum.Progress.CurrentRound,
		MaxRounds:       sum.Progress.MaxRounds,
		Converged:       sum.Progress.Converged,
		Coverage:        sum.Progress.Coverage,
		CompletedTopics: nonNil(sum.Progress.CompletedTopics),
		PendingTopics:   nonNil(sum.Progress.PendingTopics),
		CachedTopics:    nonNil(sum.CachedTopics),
	}
	if !sum.Progress.Timestamp.IsZero() {
		out.Timestamp = sum.Progress.Timestamp.Format(time.RFC3339)
	}
	return nil, out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
