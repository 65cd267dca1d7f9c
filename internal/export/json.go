package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/cartograph/internal/graph"
)

// Metadata describes the run that produced an exported graph.
type Metadata struct {
	GeneratedAt string  `json:"generatedAt"`
	GitHash     string  `json:"gitHash,omitempty"`
	Rounds      int     `json:"rounds"`
	Converged   bool    `json:"converged"`
	Coverage    float64 `json:"coverage"`
	Reason      string  `json:"reason,omitempty"`
}

// Document is the top-level JSON export structure.
type Document struct {
	Metadata Metadata          `json:"metadata"`
	Graph    graph.ModuleGraph `json:"graph"`
}

// WriteJSON writes g and meta to path, creating parent directories.
func WriteJSON(path string, g graph.ModuleGraph, meta Metadata) error {
	if meta.GeneratedAt == "" {
		meta.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	g = g.Clone()
	graph.Normalize(&g)

	data, err := json.MarshalIndent(Document{Metadata: meta, Graph: g}, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// ReadJSON loads a document written by WriteJSON. The graph invariants are
// re-established on load.
func ReadJSON(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("export: decode %s: %w", path, err)
	}
	graph.Normalize(&doc.Graph)
	return &doc, nil
}
