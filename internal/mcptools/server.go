package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the read-only file tools and the
// module graph tools registered.
func NewMCPServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cartograph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "view_file",
		Description: "Read a repository file with numbered lines, or list a directory. Paths are relative to the repository root.",
	}, svc.ViewFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_files",
		Description: "Search repository file contents with a regular expression, optionally restricted by a glob.",
	}, svc.SearchFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "glob_files",
		Description: "List repository files matching a glob pattern.",
	}, svc.GlobFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "explore",
		Description: "Explore the repository in rounds until the module graph converges. Returns a run summary; query the graph with get_module_graph.",
	}, svc.Explore)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_module_graph",
		Description: "Return the module graph from the last exploration, optionally filtered to one category.",
	}, svc.GetModuleGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse module dependencies upstream or downstream from a module. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_progress",
		Description: "Report the progress of the last exploration and which topics are cached.",
	}, svc.GetProgress)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
