package response

import (
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
)

// ParseMergeResult decodes a merge response. The graph may be nested under
// "graph" or inlined at the top level.
func ParseMergeResult(text, context string) (graph.MergeResult, []Warning, error) {
	obj, err := Parse(text, context)
	if err != nil {
		return graph.MergeResult{}, nil, err
	}

	graphObj := obj
	if nested, ok := obj["graph"].(map[string]any); ok {
		graphObj = nested
	}
	g, gw, err := ModuleGraphFromObject(graphObj, context)
	if err != nil {
		return graph.MergeResult{}, nil, err
	}

	w := &warnings{context: context, list: gw}
	res := graph.MergeResult{Graph: g, NewTopics: []graph.TopicSeed{}}

	if raw, ok := lookup(obj, "newTopics", "new_topics"); ok {
		entries, _ := objects(raw)
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			topic := strField(e, "topic")
			if topic == "" {
				continue
			}
			id := ident.Normalize(topic)
			if seen[id] {
				continue
			}
			seen[id] = true
			res.NewTopics = append(res.NewTopics, graph.TopicSeed{
				Topic:       id,
				Description: strField(e, "description"),
				Hints:       strListField(e, "hints"),
			})
		}
	} else {
		w.add("newTopics", "[]")
	}

	if raw, ok := lookup(obj, "converged"); ok {
		if b, ok := boolean(raw); ok {
			res.Converged = b
		} else {
			w.add("converged", "false")
		}
	} else {
		w.add("converged", "false")
	}

	if raw, ok := lookup(obj, "coverage"); ok {
		if c, ok := num(raw); ok {
			res.Coverage = graph.Clamp01(c)
		} else {
			w.add("coverage", "0")
		}
	} else {
		w.add("coverage", "0")
	}

	res.Reason = strField(obj, "reason")
	return res, w.list, nil
}
