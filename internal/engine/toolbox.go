package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrDenied is returned when the capability gate rejects a request.
var ErrDenied = errors.New("engine: request denied by capability gate")

// ToolSpec describes one tool in JSON-schema terms.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ToolSpecs returns the specs for the offered capabilities.
func ToolSpecs(caps Capabilities) []ToolSpec {
	var specs []ToolSpec
	if caps.View {
		specs = append(specs, ToolSpec{
			Name:        ToolViewFile,
			Description: "Read a file (or list a directory) relative to the repository root. Lines are numbered.",
			Properties: map[string]any{
				"path":   map[string]any{"type": "string", "description": "Repository-relative path"},
				"offset": map[string]any{"type": "integer", "description": "Lines to skip (default 0)"},
				"limit":  map[string]any{"type": "integer", "description": "Maximum lines to return (default 2000)"},
			},
			Required: []string{"path"},
		})
	}
	if caps.Search {
		specs = append(specs, ToolSpec{
			Name:        ToolSearchFiles,
			Description: "Search file contents with a regular expression. Returns path:line: text.",
			Properties: map[string]any{
				"pattern": map[string]any{"type": "string", "description": "RE2 regular expression"},
				"include": map[string]any{"type": "string", "description": "Optional glob restricting files, e.g. **/*.go"},
			},
			Required: []string{"pattern"},
		})
	}
	if caps.Glob {
		specs = append(specs, ToolSpec{
			Name:        ToolGlobFiles,
			Description: "List repository files matching a glob such as internal/**/*.go.",
			Properties: map[string]any{
				"pattern": map[string]any{"type": "string", "description": "Glob pattern, ** matches across directories"},
			},
			Required: []string{"pattern"},
		})
	}
	return specs
}

// Toolbox executes engine tool calls against FileTools after consulting
// the capability gate.
type Toolbox struct {
	files  *FileTools
	caps   Capabilities
	gate   Gate
	logger *slog.Logger
}

// NewToolbox builds a Toolbox. A nil gate denies every request.
func NewToolbox(files *FileTools, caps Capabilities, gate Gate, logger *slog.Logger) *Toolbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolbox{files: files, caps: caps, gate: gate, logger: logger}
}

// Specs returns the specs of the offered tools.
func (t *Toolbox) Specs() []ToolSpec { return ToolSpecs(t.caps) }

type toolInput struct {
	Path    string `json:"path"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
	Pattern string `json:"pattern"`
	Include string `json:"include"`
}

func (in toolInput) target() string {
	if in.Path != "" {
		return in.Path
	}
	return in.Pattern
}

// Call runs one tool call. Denied and failed calls return an error whose
// text is suitable to hand back to the engine.
func (t *Toolbox) Call(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var in toolInput
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return "", fmt.Errorf("engine: %s: invalid input: %w", name, err)
		}
	}

	req := Request{Kind: ParseRequestKind(name), Tool: name, Target: in.target()}
	if !Allow(t.caps, t.gate, req) {
		t.logger.Warn("tool request denied", "tool", name, "kind", req.Kind, "target", req.Target)
		return "", fmt.Errorf("%w: %s (%s)", ErrDenied, name, req.Kind)
	}
	t.logger.Debug("tool request", "tool", name, "kind", req.Kind, "target", req.Target)

	switch req.Kind {
	case KindView:
		return t.files.View(in.Path, in.Offset, in.Limit)
	case KindSearch:
		return t.files.Search(in.Pattern, in.Include)
	case KindGlob:
		return t.files.Glob(in.Pattern)
	default:
		return "", fmt.Errorf("%w: %s", ErrDenied, name)
	}
}
