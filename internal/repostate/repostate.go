// Package repostate fingerprints a repository so cached probe results can
// be tied to the content they were computed from.
package repostate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// EmptyHash is the sha256 of no input.
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// skipDirs are never walked by the fallback hash.
var skipDirs = map[string]bool{
	".git":         true,
	".cartograph":  true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// State describes how a content hash was derived.
type State struct {
	Hash       string `json:"hash"`
	HeadCommit string `json:"headCommit,omitempty"`
	Dirty      bool   `json:"dirty"`
	// Git is false when the hash came from walking the tree.
	Git bool `json:"git"`
}

// ContentHash returns State.Hash for repoPath.
func ContentHash(ctx context.Context, repoPath string) (string, error) {
	st, err := Compute(ctx, repoPath)
	if err != nil {
		return "", err
	}
	return st.Hash, nil
}

// Compute fingerprints repoPath from git HEAD plus the working tree and
// staged diffs. Outside a git checkout it hashes relative path, size and
// mtime of every file instead.
func Compute(ctx context.Context, repoPath string) (State, error) {
	head, err := git(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		h, werr := walkHash(repoPath)
		if werr != nil {
			return State{}, fmt.Errorf("repostate: %s: %w", repoPath, werr)
		}
		return State{Hash: h}, nil
	}
	head = strings.TrimSpace(head)

	working, err := git(ctx, repoPath, "diff", "HEAD")
	if err != nil {
		return State{}, fmt.Errorf("repostate: working tree diff: %w", err)
	}
	staged, err := git(ctx, repoPath, "diff", "--cached")
	if err != nil {
		return State{}, fmt.Errorf("repostate: staged diff: %w", err)
	}
	untracked, err := git(ctx, repoPath, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return State{}, fmt.Errorf("repostate: untracked files: %w", err)
	}

	wh, sh, uh := hashString(working), hashString(staged), hashString(untracked)
	return State{
		Hash:       hashString(strings.Join([]string{head, sh, wh, uh}, ":")),
		HeadCommit: head,
		Dirty:      wh != EmptyHash || sh != EmptyHash || uh != EmptyHash,
		Git:        true,
	}, nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func walkHash(root string) (string, error) {
	var lines []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s:%d:%d", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano()))
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(lines)
	return hashString(strings.Join(lines, "\n")), nil
}

func hashString(s string) string {
	if s == "" {
		return EmptyHash
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
