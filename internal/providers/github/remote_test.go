package github

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertRemoteURL(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		want   string
	}{
		{"bare repository", "https://github.com/galaxyproject/tools-iuc", "https://api.github.com/repos/galaxyproject/tools-iuc/contents"},
		{"git suffix", "https://github.com/bgruening/galaxytools.git", "https://api.github.com/repos/bgruening/galaxytools/contents"},
		{"trailing slash", "https://github.com/o/r/", "https://api.github.com/repos/o/r/contents"},
		{"main branch unpinned", "https://github.com/o/r/tree/main/tools/bwa", "https://api.github.com/repos/o/r/contents/tools/bwa"},
		{"master branch unpinned", "https://github.com/o/r/tree/master/tools", "https://api.github.com/repos/o/r/contents/tools"},
		{"other branch pinned", "https://github.com/o/r/tree/dev/tools/bwa", "https://api.github.com/repos/o/r/contents/tools/bwa?ref=dev"},
		{"blob url", "https://github.com/o/r/blob/release/tools/x", "https://api.github.com/repos/o/r/contents/tools/x?ref=release"},
		{"branch without path", "https://github.com/o/r/tree/dev", "https://api.github.com/repos/o/r/contents?ref=dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertRemoteURL("", tt.remote)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertRemoteURLRejects(t *testing.T) {
	for _, remote := range []string{
		"https://bitbucket.org/o/r",
		"https://github.com/onlyowner",
		"https://github.com/o/r/issues/1",
		"https://github.com/o/r/tree",
		"",
	} {
		_, err := ConvertRemoteURL("", remote)
		assert.True(t, errors.Is(err, ErrUnsupportedRemote), remote)
	}
}

func TestConvertRemoteURLCustomAPI(t *testing.T) {
	got, err := ConvertRemoteURL("https://ghe.example.org/api/v3/", "https://github.com/o/r")
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.org/api/v3/repos/o/r/contents", got)
}

func TestParseContentsURL(t *testing.T) {
	c, err := ParseContentsURL("https://ghe.example.org/api/v3/repos/o/r/contents/tools/bwa?ref=dev")
	require.NoError(t, err)
	assert.Equal(t, ContentsURL{
		Base:  "https://ghe.example.org/api/v3",
		Owner: "o",
		Repo:  "r",
		Path:  "tools/bwa",
		Ref:   "dev",
	}, c)
	assert.Equal(t, "https://ghe.example.org/api/v3/repos/o/r", c.RepoURL())
	assert.Equal(t, "https://ghe.example.org/api/v3/repos/o/r/git/trees/dev", c.TreeURL("dev"))
	assert.Equal(t, "https://ghe.example.org/api/v3/repos/o/r/contents/tools/bwa?ref=dev", c.String())

	root, err := ParseContentsURL("https://api.github.com/repos/o/r/contents")
	require.NoError(t, err)
	assert.Equal(t, "", root.Path)
	assert.Equal(t, "https://api.github.com/repos/o/r/contents/tools?ref=main", root.FolderURL("tools", "main"))

	for _, bad := range []string{
		"https://api.github.com/users/o",
		"https://api.github.com/repos/o/r/git/trees/main",
		"/repos/o/r/contents",
	} {
		_, err := ParseContentsURL(bad)
		assert.ErrorIs(t, err, ErrNotContentsURL, bad)
	}
}

func TestUnderBase(t *testing.T) {
	assert.True(t, UnderBase("", "tools/bwa"))
	assert.True(t, UnderBase("/", "tools/bwa"))
	assert.True(t, UnderBase("tools", "tools/bwa"))
	assert.True(t, UnderBase("tools/bwa", "tools/bwa"))
	assert.False(t, UnderBase("tools", "tools_old/bwa"))
	assert.False(t, UnderBase("tools/bwa", "tools"))
	assert.False(t, UnderBase("tools", ""))
}
