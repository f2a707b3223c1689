package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/had-nu/credsweep/internal/ignore"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Rel
	}
	return out
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"test.py":                 "API_KEY = 123",
		"ignore.log":              "should be ignored",
		"secret_folder/hidden.py": "HIDDEN_KEY = nope",
		"nested/sub/config.json":  "{}",
		".git/HEAD":               "ref: refs/heads/main",
	})

	rules := ignore.New([]string{"*.log", "secret_folder/"})
	files, err := Walk(root, rules)
	require.NoError(t, err)

	got := relPaths(files)
	assert.ElementsMatch(t, []string{"test.py", "nested/sub/config.json"}, got)
}

func TestWalkYieldsOnlyRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "content"})
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	files, err := Walk(root, ignore.New(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, relPaths(files))
}

func TestWalkPrunesExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"node_modules/pkg/a/b/c/deep.js": "token = abc",
		"src/main.go":                    "package main",
	})

	rules := ignore.New([]string{"node_modules/"})
	files, err := Walk(root, rules)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, relPaths(files))
}

func TestWalkEmptyRoot(t *testing.T) {
	files, err := Walk(t.TempDir(), ignore.New(nil))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"), ignore.New(nil))
	assert.Error(t, err)
}

func TestWalkCandidatePathsOpenable(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/b.txt": "x"})

	files, err := Walk(root, ignore.New(nil))
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = os.ReadFile(files[0].Path)
	assert.NoError(t, err)
}
