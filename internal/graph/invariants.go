package graph

import (
	"github.com/dusk-indust/cartograph/internal/ident"
)

// Normalize canonicalizes every identifier, path and enum in g, then
// re-establishes the graph invariants: unique module ids (first occurrence
// wins), no dangling dependency references, and a CategoryInfo for every
// referenced category. It returns the ids of discarded duplicate modules.
func Normalize(g *ModuleGraph) (discarded []string) {
	for i := range g.Modules {
		m := &g.Modules[i]
		m.ID = ident.Normalize(m.ID)
		m.Path = ident.NormalizePath(m.Path)
		m.KeyFiles = ident.NormalizePaths(m.KeyFiles)
		m.Dependencies = normalizeIDs(m.Dependencies)
		m.Dependents = normalizeIDs(m.Dependents)
		m.Complexity, _ = ParseComplexity(string(m.Complexity))
		if m.Category == "" {
			m.Category = DefaultCategory
		} else {
			m.Category = ident.Normalize(m.Category)
		}
	}
	for i := range g.Categories {
		g.Categories[i].Name = ident.Normalize(g.Categories[i].Name)
	}

	discarded = Dedupe(g)
	PruneReferences(g)
	EnsureCategories(g)
	if g.Project.Languages == nil {
		g.Project.Languages = []string{}
	}
	if g.Project.Frameworks == nil {
		g.Project.Frameworks = []string{}
	}
	return discarded
}

// Dedupe removes modules whose id was already seen, keeping the first
// occurrence. Duplicate categories are collapsed the same way.
func Dedupe(g *ModuleGraph) (discarded []string) {
	seen := make(map[string]bool, len(g.Modules))
	kept := make([]ModuleInfo, 0, len(g.Modules))
	for _, m := range g.Modules {
		if seen[m.ID] {
			discarded = append(discarded, m.ID)
			continue
		}
		seen[m.ID] = true
		kept = append(kept, m)
	}
	g.Modules = kept

	seenCat := make(map[string]bool, len(g.Categories))
	cats := make([]CategoryInfo, 0, len(g.Categories))
	for _, c := range g.Categories {
		if seenCat[c.Name] {
			continue
		}
		seenCat[c.Name] = true
		cats = append(cats, c)
	}
	g.Categories = cats
	return discarded
}

// PruneReferences drops dependency and dependent entries that name a module
// absent from g, along with self references and repeats.
func PruneReferences(g *ModuleGraph) {
	ids := make(map[string]bool, len(g.Modules))
	for _, m := range g.Modules {
		ids[m.ID] = true
	}
	for i := range g.Modules {
		m := &g.Modules[i]
		m.Dependencies = keepKnown(m.Dependencies, ids, m.ID)
		m.Dependents = keepKnown(m.Dependents, ids, m.ID)
	}
}

// EnsureCategories appends a CategoryInfo for every category a module
// references but g does not declare.
func EnsureCategories(g *ModuleGraph) {
	declared := make(map[string]bool, len(g.Categories))
	for _, c := range g.Categories {
		declared[c.Name] = true
	}
	if g.Categories == nil {
		g.Categories = []CategoryInfo{}
	}
	for _, m := range g.Modules {
		if declared[m.Category] {
			continue
		}
		declared[m.Category] = true
		g.Categories = append(g.Categories, CategoryInfo{Name: m.Category})
	}
}

func normalizeIDs(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	return ident.NormalizeAll(in)
}

func keepKnown(refs []string, ids map[string]bool, self string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		if r == self || !ids[r] || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
