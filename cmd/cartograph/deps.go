package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/cartograph/internal/export"
	"github.com/dusk-indust/cartograph/internal/graph"
)

var (
	depsDirection string
	depsDepth     int
)

var depsCmd = &cobra.Command{
	Use:   "deps <module>",
	Short: "Show dependency chains of a module",
	Long: `Traverse the exported module graph from one module.

Upstream lists what the module depends on; downstream lists what depends on it.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsDirection, "direction", "upstream", "upstream or downstream")
	depsCmd.Flags().IntVar(&depsDepth, "depth", 5, "maximum traversal depth")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	direction, err := graph.ParseDirection(depsDirection)
	if err != nil {
		return err
	}
	w, err := openWorkspace(repoFlag, os.Getenv, nil)
	if err != nil {
		return err
	}
	doc, err := export.ReadJSON(w.graphPath())
	if err != nil {
		return fmt.Errorf("no exported graph; run 'cartograph explore' first: %w", err)
	}

	store, err := graph.OpenStore("")
	if err != nil {
		return err
	}
	defer store.Close()
	if err := graph.Persist(ctx, store, doc.Graph); err != nil {
		return err
	}

	id := args[0]
	if mod, err := store.GetModule(ctx, id); err != nil || mod == nil {
		return fmt.Errorf("module %q not found", id)
	}
	chains, err := store.GetDependencies(ctx, id, direction, depsDepth)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(chains) == 0 {
		fmt.Fprintf(out, "%s has no %s dependencies\n", id, direction)
		return nil
	}
	fmt.Fprintf(out, "%s dependencies of %s:\n", direction, id)
	for _, c := range chains {
		fmt.Fprintf(out, "  %s\n", strings.Join(c.Nodes, " -> "))
	}
	return nil
}
