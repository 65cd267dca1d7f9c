package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/dusk-indust/cartograph/internal/ident"
)

// Tool names offered to engines and MCP clients.
const (
	ToolViewFile    = "view_file"
	ToolSearchFiles = "search_files"
	ToolGlobFiles   = "glob_files"
)

// Output caps keep a single tool answer within a model's context budget.
const (
	maxViewLines     = 2000
	maxSearchMatches = 200
	maxGlobResults   = 500
	maxLineLength    = 400
)

// ErrOutsideRoot is returned when a path escapes the repository root.
var ErrOutsideRoot = errors.New("engine: path outside repository root")

// skipDirs are never walked by search and glob.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".cartograph":  true,
	"__pycache__":  true,
	"dist":         true,
	"target":       true,
}

// FileTools implements the read-only capability set against one directory.
type FileTools struct {
	root string
}

// NewFileTools confines all operations to root.
func NewFileTools(root string) (*FileTools, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("engine: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("engine: root is not a directory: %s", abs)
	}
	return &FileTools{root: abs}, nil
}

// Root returns the absolute repository root.
func (f *FileTools) Root() string { return f.root }

// resolve maps a repository-relative path to an absolute path under root.
func (f *FileTools) resolve(rel string) (string, error) {
	rel = ident.NormalizePath(rel)
	if rel == "" || rel == "." {
		return f.root, nil
	}
	if filepath.IsAbs(rel) {
		r, err := filepath.Rel(f.root, rel)
		if err != nil {
			return "", ErrOutsideRoot
		}
		rel = r
	}
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(f.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return abs, nil
}

// View returns lines [offset, offset+limit) of path, each prefixed with
// its 1-based line number. limit <= 0 means the default cap.
func (f *FileTools) View(path string, offset, limit int) (string, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("engine: view %s: %w", path, err)
	}
	if info.IsDir() {
		return f.listDir(abs)
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxViewLines {
		limit = maxViewLines
	}

	file, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("engine: view %s: %w", path, err)
	}
	defer file.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line, written := 0, 0
	for scanner.Scan() {
		line++
		if line <= offset {
			continue
		}
		if written >= limit {
			fmt.Fprintf(&b, "... truncated at line %d\n", line-1)
			break
		}
		fmt.Fprintf(&b, "%6d\t%s\n", line, clip(scanner.Text()))
		written++
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("engine: view %s: %w", path, err)
	}
	return b.String(), nil
}

func (f *FileTools) listDir(abs string) (string, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("engine: list: %w", err)
	}
	var b strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Search returns "path:line: text" for every line matching the regular
// expression pattern. A non-empty include glob restricts the files searched.
func (f *FileTools) Search(pattern, include string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("engine: search pattern: %w", err)
	}

	var (
		b       strings.Builder
		matches int
	)
	walkErr := f.walk(func(rel, abs string) error {
		if include != "" {
			if ok, _ := doublestar.Match(include, rel); !ok {
				if ok, _ := doublestar.Match(include, filepath.Base(rel)); !ok {
					return nil
				}
			}
		}
		file, err := os.Open(abs)
		if err != nil {
			return nil
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Text()
			if strings.IndexByte(text, 0) >= 0 {
				return nil // binary
			}
			if re.MatchString(text) {
				fmt.Fprintf(&b, "%s:%d: %s\n", rel, line, clip(strings.TrimSpace(text)))
				matches++
				if matches >= maxSearchMatches {
					return fs.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return "", walkErr
	}
	if matches == 0 {
		return "no matches\n", nil
	}
	if matches >= maxSearchMatches {
		fmt.Fprintf(&b, "... stopped after %d matches\n", maxSearchMatches)
	}
	return b.String(), nil
}

// Glob lists repository files matching a doublestar pattern such as
// "internal/**/*.go".
func (f *FileTools) Glob(pattern string) (string, error) {
	pattern = ident.NormalizePath(pattern)
	if pattern == "" {
		return "", fmt.Errorf("engine: glob pattern is empty")
	}
	if _, err := doublestar.Match(pattern, ""); err != nil {
		return "", fmt.Errorf("engine: glob pattern: %w", err)
	}

	var (
		b     strings.Builder
		count int
	)
	walkErr := f.walk(func(rel, _ string) error {
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		b.WriteString(rel)
		b.WriteByte('\n')
		count++
		if count >= maxGlobResults {
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return "", walkErr
	}
	if count == 0 {
		return "no files\n", nil
	}
	return b.String(), nil
}

// walk visits every regular file under root in lexical order, passing its
// slash-separated relative path.
func (f *FileTools) walk(fn func(rel, abs string) error) error {
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			if path != f.root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), path)
	})
	if errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func clip(s string) string {
	if len(s) <= maxLineLength {
		return s
	}
	return s[:maxLineLength] + "..."
}
