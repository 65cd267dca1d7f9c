package mcptools

import "github.com/dusk-indust/cartograph/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// ViewFileInput is the input for the view_file MCP tool.
type ViewFileInput struct {
	Path   string `json:"path" jsonschema:"repository-relative path of a file or directory"`
	Offset int    `json:"offset,omitempty" jsonschema:"lines to skip before the first returned line"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of lines to return (default: 2000)"`
}

// SearchFilesInput is the input for the search_files MCP tool.
type SearchFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"RE2 regular expression matched against file contents"`
	Include string `json:"include,omitempty" jsonschema:"glob restricting searched files, e.g. **/*.go"`
}

// GlobFilesInput is the input for the glob_files MCP tool.
type GlobFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"glob pattern; ** matches across directories"`
}

// FileToolOutput is the result of every read-only file tool.
type FileToolOutput struct {
	Content string `json:"content"`
}

// ExploreInput is the input for the explore MCP tool.
type ExploreInput struct {
	Seeds     []graph.TopicSeed `json:"seeds,omitempty" jsonschema:"initial topics; when empty, topics are derived from the directory layout"`
	MaxRounds int               `json:"maxRounds,omitempty" jsonschema:"hard cap on exploration rounds (default: 3)"`
	Focus     string            `json:"focus,omitempty" jsonschema:"restrict exploration to this repository subtree"`
	UseCache  bool              `json:"useCache,omitempty" jsonschema:"reuse cached probe results even if the repository changed"`
}

// ExploreOutput is the result of the explore MCP tool.
type ExploreOutput struct {
	Rounds      int     `json:"rounds"`
	Converged   bool    `json:"converged"`
	Coverage    float64 `json:"coverage"`
	Reason      string  `json:"reason"`
	ModuleCount int     `json:"moduleCount"`
	Probes      int     `json:"probes"`
	CacheHits   int     `json:"cacheHits"`
}

// GetModuleGraphInput is the input for the get_module_graph MCP tool.
type GetModuleGraphInput struct {
	Category string `json:"category,omitempty" jsonschema:"only return modules in this category"`
}

// GetModuleGraphOutput is the result of the get_module_graph MCP tool.
type GetModuleGraphOutput struct {
	Graph graph.ModuleGraph `json:"graph"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	ModuleID  string `json:"moduleId" jsonschema:"module id as it appears in the module graph"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it depends on) or downstream (what depends on it). Default: upstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// GetProgressInput is the input for the get_progress MCP tool.
type GetProgressInput struct{}

// GetProgressOutput is the result of the get_progress MCP tool.
type GetProgressOutput struct {
	HasProgress     bool     `json:"hasProgress"`
	Current         bool     `json:"current"`
	CurrentRound    int      `json:"currentRound"`
	MaxRounds       int      `json:"maxRounds"`
	Converged       bool     `json:"converged"`
	Coverage        float64  `json:"coverage"`
	Timestamp       string   `json:"timestamp,omitempty"`
	CompletedTopics []string `json:"completedTopics"`
	PendingTopics   []string `json:"pendingTopics"`
	CachedTopics    []string `json:"cachedTopics"`
}
