package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/cartograph/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the module graph as JSON or Mermaid",
	Long: `Render the graph written by the last exploration.

Examples:
  cartograph export                      # JSON to stdout
  cartograph export --format mermaid -o arch.mmd`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format (json, mermaid)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	w, err := openWorkspace(repoFlag, os.Getenv, nil)
	if err != nil {
		return err
	}
	doc, err := export.ReadJSON(w.graphPath())
	if err != nil {
		return fmt.Errorf("no exported graph; run 'cartograph explore' first: %w", err)
	}

	var data []byte
	switch exportFormat {
	case "json":
		data, err = json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
	case "mermaid":
		data = []byte(export.GenerateMermaid(doc.Graph))
	default:
		return fmt.Errorf("unknown format %q (want json or mermaid)", exportFormat)
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", exportOutput)
	return nil
}
