package localrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func TestToolFolders(t *testing.T) {
	root := writeTree(t,
		"tools/bwa/.shed.yml",
		"tools/bwa/bwa.xml",
		"tools/bwa/nested/.shed.yml",
		"tools/samtools/.SHED.yml",
		"tools/readme.md",
		"toolsextra/x/.shed.yml",
		"data_managers/dm/.shed.yml",
		".git/hooks/.shed.yml",
	)

	t.Run("all", func(t *testing.T) {
		folders, err := ToolFolders(context.Background(), root, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"data_managers/dm",
			"tools/bwa",
			"tools/bwa/nested",
			"tools/samtools",
			"toolsextra/x",
		}, folders)
	})

	t.Run("base path compares segments", func(t *testing.T) {
		folders, err := ToolFolders(context.Background(), root, Options{BasePath: "/tools/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"tools/bwa", "tools/bwa/nested", "tools/samtools"}, folders)
	})

	t.Run("excludes", func(t *testing.T) {
		folders, err := ToolFolders(context.Background(), root, Options{Excludes: []string{"tools/**/nested", "data_managers/**"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"tools/bwa", "tools/samtools", "toolsextra/x"}, folders)
	})
}

func TestToolFoldersRootMarker(t *testing.T) {
	root := writeTree(t, ".shed.yml", "tool.xml")
	folders, err := ToolFolders(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, folders)
}

func TestToolFoldersErrors(t *testing.T) {
	root := writeTree(t, "file.txt")
	_, err := ToolFolders(context.Background(), filepath.Join(root, "file.txt"), Options{})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = ToolFolders(context.Background(), filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ToolFolders(ctx, writeTree(t, "a/.shed.yml"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFolderURLs(t *testing.T) {
	urls, err := FolderURLs("https://api.github.com/repos/galaxyproject/tools-iuc/contents/tools?ref=dev",
		[]string{"tools/bwa", ""}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://api.github.com/repos/galaxyproject/tools-iuc/contents/tools/bwa?ref=dev",
		"https://api.github.com/repos/galaxyproject/tools-iuc/contents?ref=dev",
	}, urls)

	_, err = FolderURLs("https://example.org/nope", nil, "")
	assert.Error(t, err)
}
