package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// --- Enums ---

// Complexity grades how involved a module is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ParseComplexity maps s to a Complexity, ignoring case and surrounding
// space. Unknown values become medium and ok reports false.
func ParseComplexity(s string) (c Complexity, ok bool) {
	c = Complexity(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return c, true
	default:
		return ComplexityMedium, false
	}
}

// DefaultCategory tags modules whose category was never stated.
const DefaultCategory = "general"

// --- Probe models ---

// TopicSeed directs one probe at a named architectural concern.
type TopicSeed struct {
	Topic       string   `json:"topic" yaml:"topic"`
	Description string   `json:"description" yaml:"description"`
	Hints       []string `json:"hints" yaml:"hints"`
}

// LineRange is an inclusive span of lines inside a key file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// UnmarshalJSON accepts both {"start":1,"end":9} and [1, 9].
func (r *LineRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("graph: line range needs 2 elements, got %d", len(pair))
		}
		r.Start, r.End = pair[0], pair[1]
		return nil
	}
	type plain LineRange
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("graph: line range: %w", err)
	}
	*r = LineRange(p)
	return nil
}

// FoundModule is a module reported by a single probe.
type FoundModule struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	Purpose    string      `json:"purpose"`
	KeyFiles   []string    `json:"keyFiles"`
	Evidence   string      `json:"evidence"`
	LineRanges []LineRange `json:"lineRanges,omitempty"`
}

// DiscoveredTopic is a probe's suggestion for a follow-up seed.
type DiscoveredTopic struct {
	Topic       string   `json:"topic"`
	Description string   `json:"description"`
	Hints       []string `json:"hints"`
	Source      string   `json:"source"`
}

// Seed converts the suggestion into a TopicSeed.
func (d DiscoveredTopic) Seed() TopicSeed {
	return TopicSeed{Topic: d.Topic, Description: d.Description, Hints: d.Hints}
}

// ProbeResult is everything one probe learned about one topic.
type ProbeResult struct {
	Topic            string            `json:"topic"`
	FoundModules     []FoundModule     `json:"foundModules"`
	DiscoveredTopics []DiscoveredTopic `json:"discoveredTopics"`
	Dependencies     []string          `json:"dependencies"`
	Confidence       float64           `json:"confidence"`

	// Failed marks a contained failure. It never leaves the process.
	Failed bool `json:"-"`
}

// EmptyProbeResult is the zero-value result for a topic.
// Lists are non-nil so serialized results always carry arrays.
func EmptyProbeResult(topic string) ProbeResult {
	return ProbeResult{
		Topic:            topic,
		FoundModules:     []FoundModule{},
		DiscoveredTopics: []DiscoveredTopic{},
		Dependencies:     []string{},
		Confidence:       0,
	}
}

// FailedProbeResult is EmptyProbeResult flagged as a contained failure.
func FailedProbeResult(topic string) ProbeResult {
	r := EmptyProbeResult(topic)
	r.Failed = true
	return r
}

// --- Graph models ---

// ProjectInfo describes the repository being mapped.
type ProjectInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Languages   []string `json:"languages"`
	Frameworks  []string `json:"frameworks"`
}

// ModuleInfo is one node in the accumulated module graph.
type ModuleInfo struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Purpose      string     `json:"purpose"`
	KeyFiles     []string   `json:"keyFiles"`
	Dependencies []string   `json:"dependencies"`
	Dependents   []string   `json:"dependents"`
	Complexity   Complexity `json:"complexity"`
	Category     string     `json:"category"`
}

// CategoryInfo groups modules by concern.
type CategoryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModuleGraph is the structural map accumulated across rounds.
type ModuleGraph struct {
	Project           ProjectInfo    `json:"project"`
	Modules           []ModuleInfo   `json:"modules"`
	Categories        []CategoryInfo `json:"categories"`
	ArchitectureNotes string         `json:"architectureNotes"`
}

// EmptyGraph returns a placeholder graph with non-nil lists.
func EmptyGraph() ModuleGraph {
	return ModuleGraph{
		Project:    ProjectInfo{Languages: []string{}, Frameworks: []string{}},
		Modules:    []ModuleInfo{},
		Categories: []CategoryInfo{},
	}
}

// Module returns the module with the given id, or nil.
func (g *ModuleGraph) Module(id string) *ModuleInfo {
	for i := range g.Modules {
		if g.Modules[i].ID == id {
			return &g.Modules[i]
		}
	}
	return nil
}

// Clone returns a deep copy of g.
func (g ModuleGraph) Clone() ModuleGraph {
	out := ModuleGraph{
		Project: ProjectInfo{
			Name:        g.Project.Name,
			Description: g.Project.Description,
			Languages:   cloneStrings(g.Project.Languages),
			Frameworks:  cloneStrings(g.Project.Frameworks),
		},
		Modules:           make([]ModuleInfo, len(g.Modules)),
		Categories:        make([]CategoryInfo, len(g.Categories)),
		ArchitectureNotes: g.ArchitectureNotes,
	}
	for i, m := range g.Modules {
		m.KeyFiles = cloneStrings(m.KeyFiles)
		m.Dependencies = cloneStrings(m.Dependencies)
		m.Dependents = cloneStrings(m.Dependents)
		out.Modules[i] = m
	}
	copy(out.Categories, g.Categories)
	return out
}

// MergeResult is the output of one merge step.
type MergeResult struct {
	Graph     ModuleGraph `json:"graph"`
	NewTopics []TopicSeed `json:"newTopics"`
	Converged bool        `json:"converged"`
	Coverage  float64     `json:"coverage"`
	Reason    string      `json:"reason"`
}

// --- Store models ---

// EdgeKind classifies relationships persisted in a Store.
type EdgeKind string

const (
	EdgeKindDependsOn  EdgeKind = "DEPENDS_ON"
	EdgeKindInCategory EdgeKind = "IN_CATEGORY"
)

// Edge represents a relationship between two stored nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a stored module graph.
type GraphStats struct {
	ModuleCount   int `json:"moduleCount"`
	CategoryCount int `json:"categoryCount"`
	EdgeCount     int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of modules forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"` // module IDs in order
	Depth int      `json:"depth"`
}

// Clamp01 pins v into [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
