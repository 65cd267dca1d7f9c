// Package seeds produces the initial topic list for an exploration run,
// either from a seed file or from the repository's directory layout.
package seeds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/cartograph/internal/graph"
	"github.com/dusk-indust/cartograph/internal/ident"
)

// ErrNoSeeds is returned when a seed file holds no usable topics.
var ErrNoSeeds = errors.New("seeds: no topics")

// containers hold one module per child directory.
var containers = map[string]bool{
	"src":      true,
	"internal": true,
	"pkg":      true,
	"lib":      true,
	"app":      true,
	"apps":     true,
	"packages": true,
	"services": true,
	"cmd":      true,
}

// skipDirs never become topics.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"testdata":     true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
}

type seedFile struct {
	Seeds []graph.TopicSeed `yaml:"seeds"`
}

// LoadFile reads seeds from a YAML or JSON file holding either a list of
// seeds or an object with a "seeds" list. Topics are normalized and
// repeats dropped.
func LoadFile(path string) ([]graph.TopicSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seeds: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed file content.
func Parse(data []byte) ([]graph.TopicSeed, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("seeds: decode: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, ErrNoSeeds
	}

	var list []graph.TopicSeed
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("seeds: decode: %w", err)
		}
	case yaml.MappingNode:
		var f seedFile
		if err := root.Decode(&f); err != nil {
			return nil, fmt.Errorf("seeds: decode: %w", err)
		}
		list = f.Seeds
	default:
		return nil, fmt.Errorf("seeds: decode: expected a list or an object with seeds")
	}

	out := Dedupe(list)
	if len(out) == 0 {
		return nil, ErrNoSeeds
	}
	return out, nil
}

// Dedupe normalizes topics, drops blank ones and keeps the first seed for
// each topic.
func Dedupe(in []graph.TopicSeed) []graph.TopicSeed {
	out := make([]graph.TopicSeed, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.Topic) == "" {
			continue
		}
		s.Topic = ident.Normalize(s.Topic)
		if seen[s.Topic] {
			continue
		}
		seen[s.Topic] = true
		out = append(out, s)
	}
	return out
}

// ScanDirectories derives seeds from directory names under root: every
// top-level directory, with conventional containers such as internal or
// src replaced by their children. exclude holds doublestar patterns
// matched against slash-separated relative paths.
func ScanDirectories(root string, exclude []string) ([]graph.TopicSeed, error) {
	top, err := subdirs(root, "", exclude)
	if err != nil {
		return nil, err
	}

	var found []graph.TopicSeed
	for _, rel := range top {
		name := filepath.Base(rel)
		if containers[name] {
			children, err := subdirs(root, rel, exclude)
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				for _, child := range children {
					found = append(found, seedFor(child))
				}
				continue
			}
		}
		found = append(found, seedFor(rel))
	}
	return Dedupe(found), nil
}

func subdirs(root, rel string, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("seeds: scan: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || skipDirs[name] {
			continue
		}
		child := name
		if rel != "" {
			child = rel + "/" + name
		}
		if excluded(child, exclude) {
			continue
		}
		out = append(out, child)
	}
	sort.Strings(out)
	return out, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func seedFor(rel string) graph.TopicSeed {
	name := filepath.Base(rel)
	return graph.TopicSeed{
		Topic:       ident.Normalize(name),
		Description: fmt.Sprintf("Code under %s/", rel),
		Hints:       []string{rel, name},
	}
}
