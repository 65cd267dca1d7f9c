package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cartograph/internal/orchestrator"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T, cfg Config) *mcp.ClientSession {
	t.Helper()

	svc := newTestService(t, cfg)
	server := NewMCPServer(svc)

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.NotNil(t, result.StructuredContent, "expected structured content")
	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t, Config{})

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"explore",
		"get_dependencies",
		"get_module_graph",
		"get_progress",
		"glob_files",
		"search_files",
		"view_file",
	}, names)
}

func TestMCPGlobFiles(t *testing.T) {
	session := setupServerClient(t, Config{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "glob_files",
		Arguments: GlobFilesInput{Pattern: "**/*.go"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decode[FileToolOutput](t, result)
	assert.Contains(t, out.Content, "service.go")
	assert.Contains(t, out.Content, "cmd/server/main.go")
}

func TestMCPExploreAndGraph(t *testing.T) {
	session := setupServerClient(t, Config{
		Explore: func(context.Context, ExploreInput) (*orchestrator.Outcome, error) {
			return &orchestrator.Outcome{Graph: sampleGraph(), Rounds: 1, Converged: true, Coverage: 1}, nil
		},
	})
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "explore", Arguments: ExploreInput{}})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, 3, decode[ExploreOutput](t, result).ModuleCount)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_dependencies",
		Arguments: GetDependenciesInput{ModuleID: "auth", Direction: "downstream"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	deps := decode[GetDependenciesOutput](t, result)
	require.Len(t, deps.Chains, 1)
	assert.Equal(t, []string{"auth", "server"}, deps.Chains[0].Nodes)
}

func TestMCPGraphBeforeExploreIsToolError(t *testing.T) {
	session := setupServerClient(t, Config{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_module_graph",
		Arguments: GetModuleGraphInput{},
	})
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

// TestMCPCallUnknownTool verifies that calling a non-existent tool returns an
// error.
func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t, Config{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "write_file",
		Arguments: map[string]any{"path": "x"},
	})

	// The MCP SDK may return an error at the protocol level or set IsError on
	// the result. Accept either behavior.
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
