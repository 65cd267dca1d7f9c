package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/cartograph/internal/repostate"
	"github.com/dusk-indust/cartograph/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the last exploration",
	Long:  "Display progress metadata and cached topics, and whether the cache matches the repository as it is now.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	w, err := openWorkspace(repoFlag, os.Getenv, nil)
	if err != nil {
		return err
	}
	hash, err := repostate.ContentHash(cmd.Context(), w.root)
	if err != nil {
		w.logger.Warn("content hash failed", "err", err)
	}
	sum, err := status.Load(w.cacheDir(), hash)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), sum)
	return nil
}

func printStatus(w io.Writer, sum *status.Summary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("=== cartograph status ==="))
	fmt.Fprintf(w, "Cache: %s\n\n", sum.CacheDir)

	if !sum.HasProgress {
		fmt.Fprintf(w, "  %s\n", gray("No exploration has run yet."))
		fmt.Fprintln(w, "  Run 'cartograph explore' to start one.")
		return
	}

	p := sum.Progress
	fmt.Fprintf(w, "%s\n", yellow("Last run:"))
	fmt.Fprintf(w, "  Started:   %s\n", p.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Mode:      %s\n", p.Mode)
	fmt.Fprintf(w, "  Round:     %d/%d\n", p.CurrentRound, p.MaxRounds)
	fmt.Fprintf(w, "  Coverage:  %.2f\n", p.Coverage)
	if p.Converged {
		fmt.Fprintf(w, "  State:     %s\n", green("converged"))
	} else if next := sum.NextRound(); next > 0 {
		fmt.Fprintf(w, "  State:     %s (next round %d)\n", yellow("in progress"), next)
	} else {
		fmt.Fprintf(w, "  State:     %s\n", yellow("stopped at round cap"))
	}
	fmt.Fprintf(w, "  Completed: %s\n", joinOrNone(p.CompletedTopics))
	fmt.Fprintf(w, "  Pending:   %s\n", joinOrNone(p.PendingTopics))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", yellow("Cache:"))
	fmt.Fprintf(w, "  Cached topics: %d\n", len(sum.CachedTopics))
	if sum.Current {
		fmt.Fprintf(w, "  %s cache matches the repository\n", green("✓"))
	} else {
		fmt.Fprintf(w, "  %s repository changed since the last run; use --use-cache to reuse probes\n", yellow("⚠"))
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
