package merge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/graph"
)

func found(id, name string) graph.FoundModule {
	return graph.FoundModule{ID: id, Name: name, Path: "internal/" + id}
}

func probeResult(topic string, mods []graph.FoundModule, discovered ...string) graph.ProbeResult {
	r := graph.EmptyProbeResult(topic)
	r.FoundModules = append(r.FoundModules, mods...)
	for _, d := range discovered {
		r.DiscoveredTopics = append(r.DiscoveredTopics, graph.DiscoveredTopic{Topic: d, Description: d, Source: topic})
	}
	return r
}

func replying(text string) engine.Engine {
	return engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
		return engine.Result{Success: true, Response: text}, nil
	})
}

// ---------------------------------------------------------------------------
// LocalMerge
// ---------------------------------------------------------------------------

func TestLocalMerge_FirstOccurrenceWins(t *testing.T) {
	req := Request{Results: []graph.ProbeResult{
		probeResult("auth", []graph.FoundModule{found("session", "From Auth")}),
		probeResult("api", []graph.FoundModule{found("Session", "From API"), found("router", "Router")}),
	}}

	res := LocalMerge(req, "engine unavailable")

	require.Len(t, res.Graph.Modules, 2)
	s := res.Graph.Module("session")
	require.NotNil(t, s)
	assert.Equal(t, "From Auth", s.Name)
	assert.Equal(t, "auth", s.Category)
	assert.Equal(t, graph.ComplexityMedium, s.Complexity)
	assert.Empty(t, s.Dependencies)
	assert.Equal(t, "api", res.Graph.Module("router").Category)

	var names []string
	for _, c := range res.Graph.Categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"auth", "api"}, names)
}

func TestLocalMerge_SeedsFromExisting(t *testing.T) {
	existing := graph.EmptyGraph()
	existing.Project.Name = "shop"
	existing.Modules = []graph.ModuleInfo{
		{ID: "db", Name: "Existing DB", Path: "db", Category: "storage", Complexity: graph.ComplexityHigh,
			Dependencies: []string{}, Dependents: []string{}},
	}
	existing.Categories = []graph.CategoryInfo{{Name: "storage", Description: "persistence"}}

	req := Request{
		Existing: &existing,
		Results:  []graph.ProbeResult{probeResult("db", []graph.FoundModule{found("db", "Probe DB"), found("cache", "Cache")})},
	}
	res := LocalMerge(req, "x")

	assert.Equal(t, "shop", res.Graph.Project.Name)
	require.Len(t, res.Graph.Modules, 2)
	assert.Equal(t, "Existing DB", res.Graph.Module("db").Name)
	assert.Equal(t, graph.ComplexityHigh, res.Graph.Module("db").Complexity)
	assert.Len(t, res.Graph.Categories, 2)
	assert.Len(t, existing.Modules, 1, "existing graph is not mutated")
}

func TestLocalMerge_NewTopicsAndConvergence(t *testing.T) {
	req := Request{
		Probed: []string{"auth", "API"},
		Results: []graph.ProbeResult{
			probeResult("auth", nil, "api", "Database", "sessions"),
			probeResult("api", nil, "database", "auth"),
		},
	}
	res := LocalMerge(req, "engine unavailable")

	var topics []string
	for _, s := range res.NewTopics {
		topics = append(topics, s.Topic)
	}
	assert.Equal(t, []string{"database", "sessions"}, topics)
	assert.False(t, res.Converged)
	assert.Equal(t, 0.0, res.Coverage)
	assert.Equal(t, "Local merge fallback: engine unavailable", res.Reason)

	quiet := LocalMerge(Request{Results: []graph.ProbeResult{probeResult("auth", nil)}}, "x")
	assert.True(t, quiet.Converged)
	assert.NotNil(t, quiet.NewTopics)
	assert.Empty(t, quiet.NewTopics)
}

func TestLocalMerge_EmptyTopicUsesGeneral(t *testing.T) {
	res := LocalMerge(Request{Results: []graph.ProbeResult{probeResult("", []graph.FoundModule{found("x", "X")})}}, "x")
	assert.Equal(t, graph.DefaultCategory, res.Graph.Module("x").Category)
}

func TestLocalMerge_NoDanglingReferences(t *testing.T) {
	existing := graph.EmptyGraph()
	existing.Modules = []graph.ModuleInfo{
		{ID: "a", Name: "A", Path: "a", Category: "general", Complexity: graph.ComplexityLow,
			Dependencies: []string{"b", "ghost"}, Dependents: []string{}},
	}
	res := LocalMerge(Request{
		Existing: &existing,
		Results:  []graph.ProbeResult{probeResult("t", []graph.FoundModule{found("b", "B")})},
	}, "x")

	ids := map[string]bool{}
	for _, m := range res.Graph.Modules {
		ids[m.ID] = true
	}
	for _, m := range res.Graph.Modules {
		for _, d := range append(append([]string{}, m.Dependencies...), m.Dependents...) {
			assert.True(t, ids[d], "module %s references unknown %s", m.ID, d)
		}
	}
	assert.Equal(t, []string{"b"}, res.Graph.Module("a").Dependencies)
}

// ---------------------------------------------------------------------------
// Merger
// ---------------------------------------------------------------------------

func TestMerger_RemoteSuccess(t *testing.T) {
	var gotOpts engine.InvokeOptions
	var gotPrompt string
	eng := engine.EngineFunc(func(_ context.Context, prompt string, opts engine.InvokeOptions) (engine.Result, error) {
		gotPrompt, gotOpts = prompt, opts
		return engine.Result{Success: true, Response: `{
			"graph": {
				"project": {"name": "shop"},
				"modules": [{"id": "auth-service", "name": "Auth", "path": "auth", "dependencies": ["db"]},
				            {"id": "db", "name": "DB", "path": "db"}],
				"categories": []
			},
			"newTopics": [{"topic": "Billing"}, {"topic": "auth"}],
			"converged": false,
			"coverage": 0.6,
			"reason": "more to see"
		}`}, nil
	})

	req := Request{
		RepoPath: "/repo",
		Probed:   []string{"auth"},
		Results:  []graph.ProbeResult{probeResult("auth", []graph.FoundModule{found("auth-service", "Auth")})},
	}
	res := New(eng, nil).Merge(context.Background(), req)

	assert.Len(t, res.Graph.Modules, 2)
	assert.Equal(t, []string{"db"}, res.Graph.Module("auth-service").Dependencies)
	require.Len(t, res.NewTopics, 1)
	assert.Equal(t, "billing", res.NewTopics[0].Topic)
	assert.Equal(t, 0.6, res.Coverage)
	assert.Equal(t, "more to see", res.Reason)

	assert.Equal(t, "/repo", gotOpts.WorkingDirectory)
	assert.Equal(t, engine.ReadOnly(), gotOpts.Capabilities)
	assert.Equal(t, DefaultTimeout, gotOpts.Timeout)
	assert.Contains(t, gotPrompt, "auth-service")
}

func TestMerger_DegenerateRemoteFallsBack(t *testing.T) {
	eng := replying(`{"project": {"name": "x"}, "modules": [], "converged": true, "coverage": 1}`)
	req := Request{Results: []graph.ProbeResult{probeResult("auth", []graph.FoundModule{found("auth-service", "Auth")})}}

	res := New(eng, nil).Merge(context.Background(), req)

	require.Len(t, res.Graph.Modules, 1)
	assert.Equal(t, "auth-service", res.Graph.Modules[0].ID)
	assert.True(t, strings.HasPrefix(res.Reason, FallbackPrefix))
	assert.Equal(t, 0.0, res.Coverage)
}

func TestMerger_EmptyRemoteWithNothingFoundIsAccepted(t *testing.T) {
	eng := replying(`{"project": {"name": "x"}, "modules": [], "newTopics": [], "converged": true, "coverage": 0.9}`)
	res := New(eng, nil).Merge(context.Background(), Request{Results: []graph.ProbeResult{probeResult("auth", nil)}})

	assert.True(t, res.Converged)
	assert.Equal(t, 0.9, res.Coverage)
	assert.False(t, strings.HasPrefix(res.Reason, FallbackPrefix))
}

func TestMerger_CarriesOverDroppedModules(t *testing.T) {
	existing := graph.EmptyGraph()
	existing.Project.Name = "shop"
	existing.Modules = []graph.ModuleInfo{
		{ID: "legacy", Name: "Legacy", Path: "legacy", Category: "old", Complexity: graph.ComplexityLow,
			Dependencies: []string{}, Dependents: []string{}},
	}
	existing.Categories = []graph.CategoryInfo{{Name: "old"}}

	eng := replying(`{"graph": {"project": {"name": ""}, "modules": [{"id": "new", "name": "New", "path": "new"}]},
		"newTopics": [], "converged": true, "coverage": 0.9}`)
	res := New(eng, nil).Merge(context.Background(), Request{
		Existing: &existing,
		Results:  []graph.ProbeResult{probeResult("t", []graph.FoundModule{found("new", "New")})},
	})

	assert.Len(t, res.Graph.Modules, 2)
	assert.NotNil(t, res.Graph.Module("legacy"))
	assert.Equal(t, "shop", res.Graph.Project.Name)
}

func TestMerger_FailuresFallBack(t *testing.T) {
	req := Request{Results: []graph.ProbeResult{probeResult("auth", []graph.FoundModule{found("a", "A")})}}

	tests := []struct {
		name string
		eng  engine.Engine
	}{
		{name: "nil engine", eng: nil},
		{name: "error", eng: engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
			return engine.Result{}, engine.ErrEngineFailure
		})},
		{name: "non-success", eng: engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
			return engine.Result{Success: false, Error: "boom"}, nil
		})},
		{name: "malformed", eng: replying("not json at all")},
		{name: "missing modules", eng: replying(`{"project": "x"}`)},
		{name: "panic", eng: engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
			panic("bug")
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.eng, nil).Merge(context.Background(), req)
			assert.True(t, strings.HasPrefix(res.Reason, FallbackPrefix), res.Reason)
			require.Len(t, res.Graph.Modules, 1)
			assert.Equal(t, 0.0, res.Coverage)
		})
	}
}

func TestMerger_Timeout(t *testing.T) {
	eng := engine.EngineFunc(func(ctx context.Context, _ string, _ engine.InvokeOptions) (engine.Result, error) {
		<-ctx.Done()
		return engine.Result{}, ctx.Err()
	})
	req := Request{Timeout: 20 * time.Millisecond, Results: []graph.ProbeResult{probeResult("auth", nil)}}

	res := New(eng, nil).Merge(context.Background(), req)
	assert.True(t, strings.HasPrefix(res.Reason, FallbackPrefix))
}

func TestMerger_EngineIgnoresDeadline(t *testing.T) {
	eng := engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
		time.Sleep(1500 * time.Millisecond)
		return engine.Result{Success: true, Response: `{"graph": {"modules": []}}`}, nil
	})
	req := Request{Timeout: 50 * time.Millisecond, Results: []graph.ProbeResult{probeResult("auth", []graph.FoundModule{found("a", "A")})}}

	start := time.Now()
	res := New(eng, nil).Merge(context.Background(), req)

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, strings.HasPrefix(res.Reason, FallbackPrefix), res.Reason)
	assert.Contains(t, res.Reason, "timeout")
	require.Len(t, res.Graph.Modules, 1)
}

func TestMerger_NewTopicsExcludeEarlierRounds(t *testing.T) {
	eng := replying(`{
		"graph": {"project": {"name": "shop"}, "modules": [{"id": "sessions", "name": "Sessions", "path": "sessions"}]},
		"newTopics": [{"topic": "Auth"}, {"topic": "sessions"}, {"topic": "cache"}, {"topic": "Cache"}]
	}`)
	req := Request{
		Probed:  []string{"auth", "sessions"},
		Results: []graph.ProbeResult{probeResult("sessions", []graph.FoundModule{found("sessions", "Sessions")})},
	}

	res := New(eng, nil).Merge(context.Background(), req)

	require.Len(t, res.NewTopics, 1)
	assert.Equal(t, "cache", res.NewTopics[0].Topic)
}

func TestLocalMerge_OrderOfDuplicatesFollowsBatch(t *testing.T) {
	a := probeResult("alpha", []graph.FoundModule{found("shared", "Alpha")})
	b := probeResult("beta", []graph.FoundModule{found("shared", "Beta")})

	ab := LocalMerge(Request{Results: []graph.ProbeResult{a, b}}, "x")
	ba := LocalMerge(Request{Results: []graph.ProbeResult{b, a}}, "x")

	assert.Len(t, ab.Graph.Modules, 1)
	assert.Len(t, ba.Graph.Modules, 1)
	assert.Equal(t, "Alpha", ab.Graph.Modules[0].Name)
	assert.Equal(t, "Beta", ba.Graph.Modules[0].Name)
}
