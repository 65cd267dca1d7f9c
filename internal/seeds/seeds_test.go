package seeds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/cartograph/internal/graph"
)

func topicsOf(seeds []graph.TopicSeed) []string {
	out := make([]string, len(seeds))
	for i, s := range seeds {
		out[i] = s.Topic
	}
	return out
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		topics []string
	}{
		{
			name: "yaml list",
			input: `
- topic: Auth
  description: Authentication
  hints: [login]
- topic: db
`,
			topics: []string{"auth", "db"},
		},
		{
			name: "yaml object",
			input: `
seeds:
  - topic: api
  - topic: API
  - topic: ""
`,
			topics: []string{"api"},
		},
		{
			name:   "json list",
			input:  `[{"topic": "billing", "hints": ["invoice"]}]`,
			topics: []string{"billing"},
		},
		{
			name:   "json object",
			input:  `{"seeds": [{"topic": "Event Bus"}]}`,
			topics: []string{"event-bus"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.topics, topicsOf(got))
		})
	}
}

func TestParse_KeepsFields(t *testing.T) {
	got, err := Parse([]byte("- topic: auth\n  description: Authentication\n  hints: [login, token]\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Authentication", got[0].Description)
	assert.Equal(t, []string{"login", "token"}, got[0].Hints)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.ErrorIs(t, err, ErrNoSeeds)

	_, err = Parse([]byte("[]"))
	assert.ErrorIs(t, err, ErrNoSeeds)

	_, err = Parse([]byte("just a string"))
	assert.Error(t, err)

	_, err = Parse([]byte("[unclosed"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yml")
	require.NoError(t, os.WriteFile(path, []byte("- topic: auth\n"), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"auth"}, topicsOf(got))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestScanDirectories(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{
		"docs",
		"internal/auth",
		"internal/store",
		"internal/store_test_helpers",
		"cmd/server",
		"pkg",
		".git/objects",
		"node_modules/left-pad",
		"web/static",
		"_examples/x",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	got, err := ScanDirectories(root, []string{"internal/*_helpers"})
	require.NoError(t, err)

	assert.Equal(t, []string{"server", "docs", "auth", "store", "pkg", "web"}, topicsOf(got))

	for _, s := range got {
		if s.Topic == "auth" {
			assert.Equal(t, []string{"internal/auth", "auth"}, s.Hints)
			assert.Equal(t, "Code under internal/auth/", s.Description)
		}
	}
}

func TestScanDirectories_MissingRoot(t *testing.T) {
	_, err := ScanDirectories(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}
