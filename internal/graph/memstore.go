package graph

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu         sync.RWMutex
	modules    map[string]ModuleInfo
	order      []string
	categories map[string]CategoryInfo
	edges      []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		modules:    make(map[string]ModuleInfo),
		categories: make(map[string]CategoryInfo),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddModule stores a module keyed by id. Dependency lists are derived from
// edges and are not kept on the stored copy.
func (m *MemStore) AddModule(_ context.Context, mod ModuleInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[mod.ID]; ok {
		return fmt.Errorf("memstore: duplicate module %s", mod.ID)
	}
	mod.KeyFiles = cloneStrings(mod.KeyFiles)
	mod.Dependencies = nil
	mod.Dependents = nil
	m.modules[mod.ID] = mod
	m.order = append(m.order, mod.ID)
	return nil
}

// AddCategory stores a category keyed by name.
func (m *MemStore) AddCategory(_ context.Context, c CategoryInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.Name] = c
	return nil
}

// AddEdge appends an edge after checking both endpoints exist.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[edge.SourceID]; !ok {
		return fmt.Errorf("memstore: unknown module %s", edge.SourceID)
	}
	switch edge.Kind {
	case EdgeKindDependsOn:
		if _, ok := m.modules[edge.TargetID]; !ok {
			return fmt.Errorf("memstore: unknown module %s", edge.TargetID)
		}
	case EdgeKindInCategory:
		if _, ok := m.categories[edge.TargetID]; !ok {
			return fmt.Errorf("memstore: unknown category %s", edge.TargetID)
		}
	default:
		return fmt.Errorf("memstore: unsupported edge kind: %s", edge.Kind)
	}
	m.edges = append(m.edges, edge)
	return nil
}

// GetModule returns the module with the given id, or nil if not found.
func (m *MemStore) GetModule(_ context.Context, id string) (*ModuleInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[id]
	if !ok {
		return nil, nil
	}
	out := m.withEdges(mod)
	return &out, nil
}

// ListModules returns modules in insertion order. A non-empty category
// restricts the result to that category.
func (m *MemStore) ListModules(_ context.Context, category string) ([]ModuleInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ModuleInfo, 0, len(m.order))
	for _, id := range m.order {
		mod := m.modules[id]
		if category != "" && mod.Category != category {
			continue
		}
		out = append(out, m.withEdges(mod))
	}
	return out, nil
}

// GetDependencies performs a BFS on DEPENDS_ON edges from id in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable module.
func (m *MemStore) GetDependencies(_ context.Context, id string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{id: true}
	queue := []bfsEntry{{id: id, path: []string{id}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// neighbors returns IDs reachable from id in one DEPENDS_ON hop.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		if e.Kind != EdgeKindDependsOn {
			continue
		}
		switch direction {
		case DirectionUpstream:
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionDownstream:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	return result
}

// withEdges fills Dependencies and Dependents from stored edges.
func (m *MemStore) withEdges(mod ModuleInfo) ModuleInfo {
	mod.Dependencies = []string{}
	mod.Dependents = []string{}
	for _, e := range m.edges {
		if e.Kind != EdgeKindDependsOn {
			continue
		}
		if e.SourceID == mod.ID {
			mod.Dependencies = append(mod.Dependencies, e.TargetID)
		}
		if e.TargetID == mod.ID {
			mod.Dependents = append(mod.Dependents, e.SourceID)
		}
	}
	return mod
}

// Stats returns counts of modules, categories and edges.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		ModuleCount:   len(m.modules),
		CategoryCount: len(m.categories),
		EdgeCount:     len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
