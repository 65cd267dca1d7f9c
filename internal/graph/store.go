package graph

import (
	"context"
	"fmt"
	"io"
)

// Store is the interface for the persisted module graph backend.
// Implementations: KuzuStore (cgo builds), MemStore (always available).
// Queries over a finished map go through this interface.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddModule(ctx context.Context, m ModuleInfo) error
	AddCategory(ctx context.Context, c CategoryInfo) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations. GetModule returns nil when the id is unknown.
	GetModule(ctx context.Context, id string) (*ModuleInfo, error)
	ListModules(ctx context.Context, category string) ([]ModuleInfo, error)

	// Graph traversal over DEPENDS_ON edges.
	GetDependencies(ctx context.Context, id string, direction Direction, maxDepth int) ([]DependencyChain, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this depend on?
	DirectionDownstream Direction = "downstream" // what depends on this?
)

// ParseDirection maps a user-supplied string to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUpstream, DirectionDownstream:
		return Direction(s), nil
	case "":
		return DirectionUpstream, nil
	default:
		return "", fmt.Errorf("graph: unknown direction %q", s)
	}
}

// Persist writes g into s: every category, every module, one IN_CATEGORY
// edge per module and one DEPENDS_ON edge per dependency. The graph is
// normalized on a copy first so the store never sees dangling references.
func Persist(ctx context.Context, s Store, g ModuleGraph) error {
	g = g.Clone()
	Normalize(&g)

	if err := s.InitSchema(ctx); err != nil {
		return err
	}
	for _, c := range g.Categories {
		if err := s.AddCategory(ctx, c); err != nil {
			return fmt.Errorf("graph: persist category %s: %w", c.Name, err)
		}
	}
	for _, m := range g.Modules {
		if err := s.AddModule(ctx, m); err != nil {
			return fmt.Errorf("graph: persist module %s: %w", m.ID, err)
		}
		if err := s.AddEdge(ctx, Edge{SourceID: m.ID, TargetID: m.Category, Kind: EdgeKindInCategory}); err != nil {
			return fmt.Errorf("graph: persist category edge %s: %w", m.ID, err)
		}
	}
	for _, m := range g.Modules {
		for _, dep := range m.Dependencies {
			if err := s.AddEdge(ctx, Edge{SourceID: m.ID, TargetID: dep, Kind: EdgeKindDependsOn}); err != nil {
				return fmt.Errorf("graph: persist dependency %s->%s: %w", m.ID, dep, err)
			}
		}
	}
	return nil
}
