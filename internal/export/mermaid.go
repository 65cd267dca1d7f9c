package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/cartograph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a module graph.
// Modules are grouped by category; dependencies become arrows.
func GenerateMermaid(g graph.ModuleGraph) string {
	// Build module id → Mermaid id mapping (alphanumeric only).
	nodeIDs := make(map[string]string, len(g.Modules))
	for i, m := range g.Modules {
		nodeIDs[m.ID] = fmt.Sprintf("M%d", i)
	}

	byCategory := make(map[string][]graph.ModuleInfo)
	for _, m := range g.Modules {
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, c := range g.Categories {
		members := byCategory[c.Name]
		if len(members) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  subgraph C%d[\"%s\"]\n", i, escape(c.Name)))
		for _, m := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeIDs[m.ID], escape(label(m))))
		}
		sb.WriteString("  end\n")
		delete(byCategory, c.Name)
	}
	// Modules whose category was never declared.
	for _, m := range g.Modules {
		if _, ok := byCategory[m.Category]; ok {
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", nodeIDs[m.ID], escape(label(m))))
		}
	}

	for _, m := range g.Modules {
		for _, dep := range m.Dependencies {
			target, ok := nodeIDs[dep]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", nodeIDs[m.ID], target))
		}
	}

	return sb.String()
}

func label(m graph.ModuleInfo) string {
	if m.Name != "" && m.Name != m.ID {
		return m.Name
	}
	return m.ID
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}
