package response

import (
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
)

// DefaultConfidence fills a probe result that omits or garbles confidence.
const DefaultConfidence = 0.5

// ParseProbeResult decodes a probe's raw output. topic and the found-module
// array are required; everything else is defaulted.
func ParseProbeResult(text, context string) (graph.ProbeResult, []Warning, error) {
	obj, err := Parse(text, context)
	if err != nil {
		return graph.ProbeResult{}, nil, err
	}
	return ProbeResultFromObject(obj, context)
}

// ProbeResultFromObject validates an already decoded probe object.
func ProbeResultFromObject(obj map[string]any, context string) (graph.ProbeResult, []Warning, error) {
	w := &warnings{context: context}

	topic := strField(obj, "topic")
	if topic == "" {
		return graph.ProbeResult{}, nil, newError(ErrMissingRequiredField, context, "topic", nil)
	}
	rawModules, ok := lookup(obj, "foundModules", "found_modules")
	if !ok {
		return graph.ProbeResult{}, nil, newError(ErrMissingRequiredField, context, "foundModules", nil)
	}
	items, ok := objects(rawModules)
	if !ok {
		return graph.ProbeResult{}, nil, newError(ErrMissingRequiredField, context, "foundModules", nil)
	}

	res := graph.EmptyProbeResult(ident.Normalize(topic))
	for _, item := range items {
		if m, ok := foundModule(item); ok {
			res.FoundModules = append(res.FoundModules, m)
		}
	}

	if raw, ok := lookup(obj, "discoveredTopics", "discovered_topics"); ok {
		entries, _ := objects(raw)
		for _, e := range entries {
			if d, ok := discoveredTopic(e, res.Topic); ok {
				res.DiscoveredTopics = append(res.DiscoveredTopics, d)
			}
		}
	} else {
		w.add("discoveredTopics", "[]")
	}

	if _, ok := lookup(obj, "dependencies"); ok {
		res.Dependencies = ident.NormalizeAll(strListField(obj, "dependencies"))
	} else {
		w.add("dependencies", "[]")
	}

	res.Confidence = DefaultConfidence
	if raw, ok := lookup(obj, "confidence"); ok {
		if c, ok := num(raw); ok {
			res.Confidence = graph.Clamp01(c)
		} else {
			w.add("confidence", formatFloat(DefaultConfidence))
		}
	} else {
		w.add("confidence", formatFloat(DefaultConfidence))
	}

	return res, w.list, nil
}

// foundModule returns false for items lacking id, name or path.
func foundModule(item map[string]any) (graph.FoundModule, bool) {
	id := strField(item, "id")
	name := strField(item, "name")
	path := strField(item, "path")
	if id == "" || name == "" || path == "" {
		return graph.FoundModule{}, false
	}
	m := graph.FoundModule{
		ID:       ident.Normalize(id),
		Name:     name,
		Path:     ident.NormalizePath(path),
		Purpose:  strField(item, "purpose"),
		KeyFiles: ident.NormalizePaths(strListField(item, "keyFiles", "key_files")),
		Evidence: strField(item, "evidence"),
	}
	if raw, ok := lookup(item, "lineRanges", "line_ranges"); ok {
		m.LineRanges = lineRanges(raw)
	}
	return m, true
}

func lineRanges(v any) []graph.LineRange {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []graph.LineRange
	for _, e := range arr {
		switch t := e.(type) {
		case []any:
			if len(t) != 2 {
				continue
			}
			s, ok1 := num(t[0])
			end, ok2 := num(t[1])
			if ok1 && ok2 {
				out = append(out, graph.LineRange{Start: int(s), End: int(end)})
			}
		case map[string]any:
			s, ok1 := num(t["start"])
			end, ok2 := num(t["end"])
			if ok1 && ok2 {
				out = append(out, graph.LineRange{Start: int(s), End: int(end)})
			}
		}
	}
	return out
}

// discoveredTopic returns false for entries lacking topic or description.
func discoveredTopic(e map[string]any, fromTopic string) (graph.DiscoveredTopic, bool) {
	topic := strField(e, "topic")
	desc := strField(e, "description")
	if topic == "" || desc == "" {
		return graph.DiscoveredTopic{}, false
	}
	source := strField(e, "source")
	if source == "" {
		source = fromTopic
	}
	return graph.DiscoveredTopic{
		Topic:       ident.Normalize(topic),
		Description: desc,
		Hints:       strListField(e, "hints"),
		Source:      source,
	}, true
}
