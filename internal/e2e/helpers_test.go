//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cartograph/internal/cache"
	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/merge"
	"github.com/dusk-indust/cartograph/internal/orchestrator"
	"github.com/dusk-indust/cartograph/internal/probe"
	"github.com/dusk-indust/cartograph/internal/seeds"
)

// fixturePath returns the absolute path of the go_project fixture.
func fixturePath(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", "go_project"))
	require.NoError(t, err)
	return abs
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// probeScript describes what the scripted engine reports for one topic.
type probeScript struct {
	id, name, path, purpose string
	glob                    string
	discovers               []graph.DiscoveredTopic
	deps                    []string
}

var probeScripts = map[string]probeScript{
	"server": {
		id: "server", name: "Server", path: "cmd/server", purpose: "process entry point",
		glob:      "cmd/server/*.go",
		discovers: []graph.DiscoveredTopic{{Topic: "Project Model", Description: "root package types", Hints: []string{"model.go"}, Source: "cmd/server/main.go"}},
		deps:      []string{"auth", "store"},
	},
	"auth": {
		id: "auth", name: "Auth", path: "internal/auth", purpose: "token validation",
		glob:      "internal/auth/*.go",
		discovers: []graph.DiscoveredTopic{{Topic: "store", Source: "internal/auth/auth.go"}},
		deps:      []string{"store"},
	},
	"store": {
		id: "store", name: "Store", path: "internal/store", purpose: "in-memory persistence",
		glob: "internal/store/*.go",
	},
	"project-model": {
		id: "project-model", name: "Project model", path: ".", purpose: "shared domain types",
		glob: "*.go",
	},
}

// mergeScripts are the remote merge answers, one per round.
var mergeScripts = []string{
	`{
  "graph": {
    "project": {"name": "go_project", "description": "fixture service", "languages": ["go"], "frameworks": []},
    "modules": [
      {"id": "server", "name": "Server", "path": "cmd/server", "purpose": "process entry point", "keyFiles": ["cmd/server/main.go"], "dependencies": ["auth", "store"], "dependents": [], "complexity": "low", "category": "entrypoints"},
      {"id": "auth", "name": "Auth", "path": "internal/auth", "purpose": "token validation", "keyFiles": ["internal/auth/auth.go"], "dependencies": ["store"], "dependents": [], "complexity": "medium", "category": "core"},
      {"id": "store", "name": "Store", "path": "internal/store", "purpose": "in-memory persistence", "keyFiles": ["internal/store/store.go"], "dependencies": [], "dependents": [], "complexity": "low", "category": "core"}
    ],
    "categories": [{"name": "entrypoints", "description": "binaries"}, {"name": "core", "description": "domain logic"}],
    "architectureNotes": "single binary over two internal packages"
  },
  "newTopics": [{"topic": "Project Model", "description": "root package types", "hints": ["model.go"]}],
  "converged": false,
  "coverage": 0.6,
  "reason": "root package unexplored"
}`,
	// Drops the first round's modules; they must be carried over.
	`{
  "graph": {
    "project": {"name": "go_project", "languages": ["go"], "frameworks": []},
    "modules": [
      {"id": "project-model", "name": "Project model", "path": ".", "purpose": "shared domain types", "keyFiles": ["model.go", "service.go"], "dependencies": ["ghost"], "dependents": [], "complexity": "low", "category": "core"}
    ],
    "categories": [{"name": "core", "description": "domain logic"}]
  },
  "newTopics": [],
  "converged": true,
  "coverage": 0.95,
  "reason": "all topics explored"
}`,
}

var topicRe = regexp.MustCompile(`architectural topic "([^"]+)"`)

// scriptedEngine answers probe prompts by globbing the fixture through the
// gated toolbox and merge prompts from mergeScripts.
type scriptedEngine struct {
	files      *engine.FileTools
	failMerges bool

	probes atomic.Int32
	merges atomic.Int32
	denied atomic.Int32
}

func newScriptedEngine(t *testing.T) *scriptedEngine {
	t.Helper()
	files, err := engine.NewFileTools(fixturePath(t))
	require.NoError(t, err)
	return &scriptedEngine{files: files}
}

var _ engine.Engine = (*scriptedEngine)(nil)

func (s *scriptedEngine) Invoke(ctx context.Context, prompt string, opts engine.InvokeOptions) (engine.Result, error) {
	if strings.HasPrefix(prompt, "Merge the probe results") {
		n := int(s.merges.Add(1))
		if s.failMerges {
			return engine.Result{Success: false, Error: "merge backend offline"}, nil
		}
		if n > len(mergeScripts) {
			return engine.Result{Success: false, Error: "no scripted merge"}, nil
		}
		return engine.Result{Success: true, Response: "```json\n" + mergeScripts[n-1] + "\n```"}, nil
	}

	s.probes.Add(1)
	tb := engine.NewToolbox(s.files, opts.Capabilities, opts.Gate, quietLogger())
	if _, err := tb.Call(ctx, "write_file", json.RawMessage(`{"path":"model.go"}`)); errors.Is(err, engine.ErrDenied) {
		s.denied.Add(1)
	}

	m := topicRe.FindStringSubmatch(prompt)
	if m == nil {
		return engine.Result{Success: false, Error: "prompt names no topic"}, nil
	}
	script, ok := probeScripts[m[1]]
	if !ok {
		return engine.Result{Success: false, Error: "unknown topic " + m[1]}, nil
	}

	out, err := tb.Call(ctx, engine.ToolGlobFiles, json.RawMessage(fmt.Sprintf(`{"pattern":%q}`, script.glob)))
	if err != nil {
		return engine.Result{}, err
	}
	var keyFiles []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" && line != "no files" {
			keyFiles = append(keyFiles, line)
		}
	}

	res := graph.ProbeResult{
		Topic: m[1],
		FoundModules: []graph.FoundModule{{
			ID: script.id, Name: script.name, Path: script.path, Purpose: script.purpose,
			KeyFiles: keyFiles, Evidence: "matched " + script.glob,
		}},
		DiscoveredTopics: script.discovers,
		Dependencies:     script.deps,
		Confidence:       0.8,
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Success: true, Response: "Findings for " + m[1] + ":\n```json\n" + string(raw) + "\n```"}, nil
}

// explore runs the controller over root with eng serving both probes and
// merges.
func explore(root string, eng engine.Engine, cacheDir string) (*orchestrator.Outcome, error) {
	seedList, err := seeds.ScanDirectories(root, nil)
	if err != nil {
		return nil, err
	}
	pc, err := cache.New(cacheDir)
	if err != nil {
		return nil, err
	}

	logger := quietLogger()
	ctrl := orchestrator.NewController(orchestrator.Config{
		RepoPath: root,
		GitHash:  "e2e-fixture",
	}.WithDefaults(),
		probe.NewExecutor(eng, logger),
		merge.New(eng, logger),
		orchestrator.WithCache(pc),
		orchestrator.WithLogger(logger),
	)
	return ctrl.Run(context.Background(), seedList), nil
}

func runExploration(t *testing.T, eng engine.Engine, cacheDir string) *orchestrator.Outcome {
	t.Helper()
	out, err := explore(fixturePath(t), eng, cacheDir)
	require.NoError(t, err)
	return out
}

func moduleIDs(g graph.ModuleGraph) []string {
	ids := make([]string, len(g.Modules))
	for i, m := range g.Modules {
		ids[i] = m.ID
	}
	return ids
}
