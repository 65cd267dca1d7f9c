package response

import (
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
)

// ParseModuleGraph decodes a module graph. project and modules are
// required. The returned graph satisfies the graph invariants.
func ParseModuleGraph(text, context string) (graph.ModuleGraph, []Warning, error) {
	obj, err := Parse(text, context)
	if err != nil {
		return graph.ModuleGraph{}, nil, err
	}
	return ModuleGraphFromObject(obj, context)
}

// ModuleGraphFromObject validates an already decoded graph object.
func ModuleGraphFromObject(obj map[string]any, context string) (graph.ModuleGraph, []Warning, error) {
	w := &warnings{context: context}

	rawProject, ok := lookup(obj, "project")
	if !ok {
		return graph.ModuleGraph{}, nil, newError(ErrMissingRequiredField, context, "project", nil)
	}
	rawModules, ok := lookup(obj, "modules")
	if !ok {
		return graph.ModuleGraph{}, nil, newError(ErrMissingRequiredField, context, "modules", nil)
	}
	items, ok := objects(rawModules)
	if !ok {
		return graph.ModuleGraph{}, nil, newError(ErrMissingRequiredField, context, "modules", nil)
	}

	g := graph.EmptyGraph()
	g.Project = project(rawProject)

	for _, item := range items {
		m, ok := moduleInfo(item, w)
		if !ok {
			continue
		}
		g.Modules = append(g.Modules, m)
	}

	if raw, ok := lookup(obj, "categories"); ok {
		entries, _ := objects(raw)
		for _, e := range entries {
			name := strField(e, "name")
			if name == "" {
				continue
			}
			g.Categories = append(g.Categories, graph.CategoryInfo{
				Name:        name,
				Description: strField(e, "description"),
			})
		}
	} else {
		w.add("categories", "[]")
	}

	if raw, ok := lookup(obj, "architectureNotes", "architecture_notes"); ok {
		g.ArchitectureNotes = str(raw)
	} else {
		w.add("architectureNotes", `""`)
	}

	for _, id := range graph.Normalize(&g) {
		w.add("modules["+id+"]", "first occurrence kept, duplicate discarded")
	}
	return g, w.list, nil
}

func project(v any) graph.ProjectInfo {
	p := graph.ProjectInfo{Languages: []string{}, Frameworks: []string{}}
	switch t := v.(type) {
	case map[string]any:
		p.Name = strField(t, "name")
		p.Description = strField(t, "description")
		p.Languages = strListField(t, "languages")
		p.Frameworks = strListField(t, "frameworks")
	case string:
		p.Name = t
	}
	return p
}

// moduleInfo falls back to name when id is missing and skips entries
// that have neither.
func moduleInfo(item map[string]any, w *warnings) (graph.ModuleInfo, bool) {
	id := strField(item, "id")
	name := strField(item, "name")
	if id == "" {
		id = name
	}
	if id == "" {
		return graph.ModuleInfo{}, false
	}
	if name == "" {
		name = id
	}

	m := graph.ModuleInfo{
		ID:           ident.Normalize(id),
		Name:         name,
		Path:         strField(item, "path"),
		Purpose:      strField(item, "purpose"),
		KeyFiles:     strListField(item, "keyFiles", "key_files"),
		Dependencies: strListField(item, "dependencies"),
		Dependents:   strListField(item, "dependents"),
		Category:     strField(item, "category"),
	}

	cx, ok := graph.ParseComplexity(strField(item, "complexity"))
	if !ok {
		w.add("modules["+m.ID+"].complexity", string(graph.ComplexityMedium))
	}
	m.Complexity = cx
	return m, true
}
