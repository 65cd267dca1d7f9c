package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/cartograph/internal/mcptools"
	"github.com/dusk-indust/cartograph/internal/orchestrator"
)

var serveHTTPAddr string

var serveCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Run as an MCP server",
	Long: `Serve the read-only file tools, exploration and graph queries over the
Model Context Protocol. Uses stdio unless --http is given.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "listen address for the streamable HTTP transport")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w, err := openWorkspace(repoFlag, os.Getenv, nil)
	if err != nil {
		return err
	}

	svc, err := mcptools.NewService(mcptools.Config{
		RepoRoot:  w.root,
		CacheDir:  w.cacheDir(),
		GraphPath: w.graphPath(),
		StorePath: w.storePath(),
		Explore:   w.explorer(),
		Logger:    w.logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	server := mcptools.NewMCPServer(svc)
	if serveHTTPAddr != "" {
		w.logger.Info("serving MCP over HTTP", "addr", serveHTTPAddr)
		return mcptools.RunHTTP(ctx, server, serveHTTPAddr)
	}
	return mcptools.RunStdio(ctx, server)
}

// explorer adapts workspace.explore to the MCP explore tool. Progress is
// not printed because stdout may carry the protocol.
func (w *workspace) explorer() mcptools.Explorer {
	return func(ctx context.Context, in mcptools.ExploreInput) (*orchestrator.Outcome, error) {
		seedList := in.Seeds
		if len(seedList) == 0 {
			found, err := w.loadSeeds("")
			if err != nil {
				return nil, err
			}
			seedList = found
		}
		sel, err := w.selectEngine(ctx)
		if err != nil {
			return nil, err
		}
		return w.explore(ctx, sel, seedList, exploreOptions{
			focus:     in.Focus,
			maxRounds: in.MaxRounds,
			useCache:  in.UseCache,
		}, nil)
	}
}
