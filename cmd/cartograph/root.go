package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time.
var version = "dev"

var (
	repoFlag    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "cartograph",
	Short: "Map a repository's architecture by iterative exploration",
	Long: `cartograph explores a repository topic by topic with an analysis engine,
merges what each probe finds into a module graph and repeats until the graph
converges or the round limit is reached.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), verboseFlag))
	},
}

func init() {
	rootCmd.SetVersionTemplate("cartograph {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", ".", "path to the repository to explore")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

// newLogger logs to w, which is stderr so stdout stays free for output
// and the MCP stdio transport.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
