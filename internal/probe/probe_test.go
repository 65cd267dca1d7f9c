package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/graph"
)

var authSeed = graph.TopicSeed{Topic: "auth", Description: "Authentication", Hints: []string{"login", "token"}}

func engineReturning(res engine.Result, err error) engine.Engine {
	return engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
		return res, err
	})
}

func assertFailed(t *testing.T, res graph.ProbeResult, topic string) {
	t.Helper()
	assert.True(t, res.Failed)
	assert.Equal(t, topic, res.Topic)
	assert.NotNil(t, res.FoundModules)
	assert.Empty(t, res.FoundModules)
	assert.NotNil(t, res.DiscoveredTopics)
	assert.Empty(t, res.DiscoveredTopics)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestExecutor_Success(t *testing.T) {
	var gotOpts engine.InvokeOptions
	var gotPrompt string
	eng := engine.EngineFunc(func(_ context.Context, prompt string, opts engine.InvokeOptions) (engine.Result, error) {
		gotPrompt, gotOpts = prompt, opts
		return engine.Result{Success: true, Response: "```json\n" + `{
			"topic": "Authentication",
			"foundModules": [{"id": "Auth Service", "name": "Auth", "path": "internal/auth"}],
			"discoveredTopics": [{"topic": "sessions", "description": "session storage"}],
			"dependencies": ["db"],
			"confidence": 0.8
		}` + "\n```"}, nil
	})

	res := NewExecutor(eng, nil).Run(context.Background(), "/repo", authSeed, Options{Model: "m", Focus: "internal"})

	assert.Equal(t, "auth", res.Topic, "result topic is the seed topic")
	assert.False(t, res.Failed)
	require.Len(t, res.FoundModules, 1)
	assert.Equal(t, "auth-service", res.FoundModules[0].ID)
	require.Len(t, res.DiscoveredTopics, 1)
	assert.Equal(t, 0.8, res.Confidence)

	assert.Equal(t, "/repo", gotOpts.WorkingDirectory)
	assert.Equal(t, engine.ReadOnly(), gotOpts.Capabilities)
	require.NotNil(t, gotOpts.Gate)
	assert.Equal(t, engine.Deny, gotOpts.Gate(engine.Request{Kind: engine.KindWrite}))
	assert.Equal(t, engine.Deny, gotOpts.Gate(engine.Request{Kind: engine.KindUnknown}))
	assert.Equal(t, "m", gotOpts.Model)
	assert.Equal(t, DefaultTimeout, gotOpts.Timeout)

	assert.Contains(t, gotPrompt, `"auth"`)
	assert.Contains(t, gotPrompt, "Authentication")
	assert.Contains(t, gotPrompt, "login, token")
	assert.Contains(t, gotPrompt, `subtree "internal"`)
}

func TestExecutor_Containment(t *testing.T) {
	tests := []struct {
		name string
		eng  engine.Engine
	}{
		{name: "nil engine", eng: nil},
		{name: "engine error", eng: engineReturning(engine.Result{}, engine.ErrEngineUnavailable)},
		{name: "non-success", eng: engineReturning(engine.Result{Success: false, Error: "rate limited"}, nil)},
		{name: "unparseable", eng: engineReturning(engine.Result{Success: true, Response: "not json at all"}, nil)},
		{name: "missing modules", eng: engineReturning(engine.Result{Success: true, Response: `{"topic": "auth"}`}, nil)},
		{name: "panic", eng: engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
			panic("engine bug")
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res graph.ProbeResult
			require.NotPanics(t, func() {
				res = NewExecutor(tt.eng, nil).Run(context.Background(), "/repo", authSeed, Options{})
			})
			assertFailed(t, res, "auth")
		})
	}
}

func TestExecutor_Timeout(t *testing.T) {
	eng := engine.EngineFunc(func(ctx context.Context, _ string, _ engine.InvokeOptions) (engine.Result, error) {
		<-ctx.Done()
		return engine.Result{Success: true, Response: `{"topic": "auth", "foundModules": [{"id": "a", "name": "a", "path": "a"}]}`}, nil
	})

	start := time.Now()
	res := NewExecutor(eng, nil).Run(context.Background(), "/repo", authSeed, Options{Timeout: 20 * time.Millisecond})

	assertFailed(t, res, "auth")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecutor_EngineIgnoresDeadline(t *testing.T) {
	eng := engine.EngineFunc(func(context.Context, string, engine.InvokeOptions) (engine.Result, error) {
		time.Sleep(1500 * time.Millisecond)
		return engine.Result{Success: true, Response: `{"topic": "auth", "foundModules": [{"id": "a", "name": "a", "path": "a"}]}`}, nil
	})

	start := time.Now()
	res := NewExecutor(eng, nil).Run(context.Background(), "/repo", authSeed, Options{Timeout: 50 * time.Millisecond})

	assert.Less(t, time.Since(start), time.Second)
	assertFailed(t, res, "auth")
}

func TestExecutor_EmptyAnswerIsNotFailure(t *testing.T) {
	eng := engineReturning(engine.Result{Success: true, Response: `{"topic": "auth", "foundModules": [], "discoveredTopics": [], "confidence": 0}`}, nil)

	res := NewExecutor(eng, nil).Run(context.Background(), "/repo", authSeed, Options{})

	assert.False(t, res.Failed)
	assert.Equal(t, "auth", res.Topic)
	assert.Empty(t, res.FoundModules)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestBuildPrompt_Minimal(t *testing.T) {
	p := BuildPrompt(graph.TopicSeed{Topic: "db"}, "")
	assert.Contains(t, p, `"db"`)
	assert.NotContains(t, p, "Search hints")
	assert.NotContains(t, p, "subtree")
}
