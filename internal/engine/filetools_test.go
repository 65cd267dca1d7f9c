package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (relative path -> content) under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTestTools(t *testing.T) *FileTools {
	t.Helper()
	root := writeTree(t, map[string]string{
		"go.mod":                    "module example.com/shop\n",
		"internal/auth/auth.go":     "package auth\n\nfunc Login() {}\n",
		"internal/auth/token.go":    "package auth\n\n// Token signs sessions.\nfunc Token() {}\n",
		"internal/orders/orders.go": "package orders\n\nfunc Place() {}\n",
		".git/HEAD":                 "ref: refs/heads/main\n",
		"node_modules/x/index.js":   "function Login() {}\n",
	})
	ft, err := NewFileTools(root)
	require.NoError(t, err)
	return ft
}

func TestFileTools_View(t *testing.T) {
	ft := newTestTools(t)

	out, err := ft.View("./internal/auth/token.go", 0, 0)
	require.NoError(t, err)
	assert.Contains(t, out, "     1\tpackage auth")
	assert.Contains(t, out, "     4\tfunc Token() {}")

	out, err = ft.View("internal/auth/token.go", 2, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "     3\t// Token signs sessions."))
	assert.Contains(t, out, "truncated at line 3")

	out, err = ft.View("internal", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "auth/\norders/\n", out)
}

func TestFileTools_ConfinedToRoot(t *testing.T) {
	ft := newTestTools(t)

	_, err := ft.View("../../etc/passwd", 0, 0)
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = ft.View("internal/../../outside", 0, 0)
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = ft.View("/etc/passwd", 0, 0)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestFileTools_Search(t *testing.T) {
	ft := newTestTools(t)

	out, err := ft.Search(`func (Login|Place)`, "")
	require.NoError(t, err)
	assert.Contains(t, out, "internal/auth/auth.go:3: func Login() {}")
	assert.Contains(t, out, "internal/orders/orders.go:3: func Place() {}")
	assert.NotContains(t, out, "node_modules", "vendored trees are skipped")

	out, err = ft.Search(`^func`, "internal/auth/**")
	require.NoError(t, err)
	assert.NotContains(t, out, "orders")

	out, err = ft.Search(`nothing-matches-this`, "")
	require.NoError(t, err)
	assert.Equal(t, "no matches\n", out)

	_, err = ft.Search(`(unclosed`, "")
	assert.Error(t, err)
}

func TestFileTools_Glob(t *testing.T) {
	ft := newTestTools(t)

	out, err := ft.Glob("internal/**/*.go")
	require.NoError(t, err)
	assert.Equal(t, "internal/auth/auth.go\ninternal/auth/token.go\ninternal/orders/orders.go\n", out)

	out, err = ft.Glob("*.mod")
	require.NoError(t, err)
	assert.Equal(t, "go.mod\n", out)

	out, err = ft.Glob("**/HEAD")
	require.NoError(t, err)
	assert.Equal(t, "no files\n", out, ".git is never walked")
}

func TestToolbox_Call(t *testing.T) {
	ft := newTestTools(t)
	tb := NewToolbox(ft, ReadOnly(), ReadOnlyGate, nil)
	ctx := context.Background()

	out, err := tb.Call(ctx, ToolGlobFiles, json.RawMessage(`{"pattern": "internal/orders/*"}`))
	require.NoError(t, err)
	assert.Equal(t, "internal/orders/orders.go\n", out)

	out, err = tb.Call(ctx, ToolViewFile, json.RawMessage(`{"path": "go.mod"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "module example.com/shop")

	_, err = tb.Call(ctx, "write_file", json.RawMessage(`{"path": "evil.txt"}`))
	assert.ErrorIs(t, err, ErrDenied)

	_, err = tb.Call(ctx, "mystery_tool", nil)
	assert.ErrorIs(t, err, ErrDenied)

	_, err = tb.Call(ctx, ToolViewFile, json.RawMessage(`{not json`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDenied)

	_, statErr := os.Stat(filepath.Join(ft.Root(), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestToolbox_CapabilitiesRestrictSpecs(t *testing.T) {
	ft := newTestTools(t)
	tb := NewToolbox(ft, Capabilities{View: true}, ReadOnlyGate, nil)

	specs := tb.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, ToolViewFile, specs[0].Name)

	_, err := tb.Call(context.Background(), ToolSearchFiles, json.RawMessage(`{"pattern": "x"}`))
	assert.ErrorIs(t, err, ErrDenied)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Equal(t, ErrEngineTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, ErrEngineUnavailable, Classify(ErrEngineUnavailable))
	assert.Equal(t, ErrEngineFailure, Classify(assert.AnError))
}
