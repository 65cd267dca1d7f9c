package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/cartograph/internal/cache"
	"github.com/dusk-indust/cartograph/internal/engine"
	"github.com/dusk-indust/cartograph/internal/export"
	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/merge"
	"github.com/dusk-indust/cartograph/internal/orchestrator"
	"github.com/dusk-indust/cartograph/internal/probe"
	"github.com/dusk-indust/cartograph/internal/repostate"
)

// mermaidFile is written next to the graph when --mermaid is set.
const mermaidFile = "module-graph.mmd"

// exploreOptions are per-run overrides of the project config. Zero values
// keep the configured setting.
type exploreOptions struct {
	seedsFile   string
	focus       string
	maxRounds   int
	concurrency int
	useCache    bool
	mermaid     bool
}

var exploreOpts exploreOptions

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Explore the repository and write its module graph",
	Long: `Probe every seed topic with the analysis engine, merge the findings and
repeat with newly discovered topics until the graph converges.

Seeds come from --seeds, the seedsFile setting in cartograph.yml, or a scan
of the repository's top-level directories.

Examples:
  cartograph explore
  cartograph explore --seeds topics.yml --max-rounds 5
  cartograph explore --focus internal/api --use-cache --mermaid`,
	RunE: runExplore,
}

func init() {
	f := exploreCmd.Flags()
	f.StringVar(&exploreOpts.seedsFile, "seeds", "", "YAML or JSON seed file")
	f.StringVar(&exploreOpts.focus, "focus", "", "restrict every probe to this subtree")
	f.IntVar(&exploreOpts.maxRounds, "max-rounds", 0, "hard cap on rounds (default 3)")
	f.IntVar(&exploreOpts.concurrency, "concurrency", 0, "probes in flight per round (default 5)")
	f.BoolVar(&exploreOpts.useCache, "use-cache", false, "reuse cached probes even if the repository changed")
	f.BoolVar(&exploreOpts.mermaid, "mermaid", false, "also write a Mermaid diagram")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w, err := openWorkspace(repoFlag, os.Getenv, nil)
	if err != nil {
		return err
	}
	seedList, err := w.loadSeeds(exploreOpts.seedsFile)
	if err != nil {
		return err
	}
	sel, err := w.selectEngine(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := w.explore(ctx, sel, seedList, exploreOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	printOutcome(cmd.OutOrStdout(), out, w.graphPath(), time.Since(start))
	return nil
}

// runConfig merges the project config with per-run overrides.
func (w *workspace) runConfig(hash string, opts exploreOptions) orchestrator.Config {
	cfg := orchestrator.Config{
		RepoPath:          w.root,
		GitHash:           hash,
		Model:             w.cfg.Model,
		MergeModel:        w.cfg.MergeModel,
		Concurrency:       w.cfg.Concurrency,
		MaxRounds:         w.cfg.MaxRounds,
		CoverageThreshold: w.cfg.CoverageThreshold,
		ProbeTimeout:      w.cfg.ProbeTimeout,
		MergeTimeout:      w.cfg.MergeTimeout,
		Focus:             w.cfg.Focus,
		UseAnyCache:       w.cfg.UseCache,
	}
	if opts.focus != "" {
		cfg.Focus = opts.focus
	}
	if opts.maxRounds > 0 {
		cfg.MaxRounds = opts.maxRounds
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if opts.useCache {
		cfg.UseAnyCache = true
	}
	return cfg.WithDefaults()
}

// explore runs one exploration with sel and exports the resulting graph.
// Progress lines go to progress when it is non-nil.
func (w *workspace) explore(ctx context.Context, sel engine.Selection, seedList []graph.TopicSeed, opts exploreOptions, progress io.Writer) (*orchestrator.Outcome, error) {
	hash, err := repostate.ContentHash(ctx, w.root)
	if err != nil {
		return nil, err
	}
	pc, err := cache.New(w.cacheDir())
	if err != nil {
		return nil, err
	}
	cfg := w.runConfig(hash, opts)
	w.logger.Info("exploration starting",
		"repo", w.root,
		"backend", sel.Backend,
		"seeds", len(seedList),
		"max_rounds", cfg.MaxRounds,
		"concurrency", cfg.Concurrency,
	)

	var reporter *orchestrator.ProgressReporter
	done := make(chan struct{})
	if progress != nil {
		reporter = orchestrator.NewProgressReporter()
		go func() {
			defer close(done)
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(progress, colorizeProgress(ev))
			}
		}()
	} else {
		close(done)
	}

	ctrl := orchestrator.NewController(cfg,
		probe.NewExecutor(sel.Engine, w.logger),
		merge.New(sel.Engine, w.logger),
		orchestrator.WithCache(pc),
		orchestrator.WithProgress(reporter),
		orchestrator.WithLogger(w.logger),
	)
	out := ctrl.Run(ctx, seedList)
	if reporter != nil {
		reporter.Close()
	}
	<-done

	meta := export.Metadata{
		GitHash:   hash,
		Rounds:    out.Rounds,
		Converged: out.Converged,
		Coverage:  out.Coverage,
		Reason:    out.Reason,
	}
	if err := export.WriteJSON(w.graphPath(), out.Graph, meta); err != nil {
		return out, err
	}
	if opts.mermaid {
		path := filepath.Join(w.outputDir(), mermaidFile)
		if err := os.WriteFile(path, []byte(export.GenerateMermaid(out.Graph)), 0o644); err != nil {
			return out, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return out, nil
}

func colorizeProgress(ev orchestrator.ProgressEvent) string {
	line := orchestrator.FormatProgress(ev)
	switch {
	case ev.Status == orchestrator.ProgressWorking && ev.Topic == "":
		return color.New(color.Bold).Sprint(line)
	case ev.Status == orchestrator.ProgressComplete, ev.Status == orchestrator.ProgressCached:
		return color.New(color.FgGreen).Sprint(line)
	case ev.Status == orchestrator.ProgressFailed:
		return color.New(color.FgRed).Sprint(line)
	case ev.Status == orchestrator.ProgressMerging:
		return color.New(color.FgCyan).Sprint(line)
	case ev.Status == orchestrator.ProgressPending:
		return color.New(color.FgHiBlack).Sprint(line)
	default:
		return line
	}
}

func printOutcome(w io.Writer, out *orchestrator.Outcome, graphPath string, elapsed time.Duration) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	stateText := yellow(out.State.String())
	if out.Converged {
		stateText = green(out.State.String())
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Exploration %s after %d round(s): %s\n", stateText, out.Rounds, out.Reason)
	fmt.Fprintf(w, "  Modules:    %d in %d categories\n", len(out.Graph.Modules), len(out.Graph.Categories))
	fmt.Fprintf(w, "  Coverage:   %.2f\n", out.Coverage)
	fmt.Fprintf(w, "  Probes:     %d (%d cached)\n", out.Probes, out.CacheHits)
	fmt.Fprintf(w, "  Graph:      %s\n", graphPath)
	fmt.Fprintf(w, "  Elapsed:    %s\n", elapsed.Round(time.Millisecond))
}
