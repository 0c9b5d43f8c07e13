package toolshed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor([]byte(`
name: bwa
owner: devteam
description: Wrapper for the bwa aligner
long_description: |
  BWA is a software package for mapping low-divergent sequences.
categories:
  - " Sequence Analysis "
  - Next Gen Mappers
  - ""
remote_repository_url: https://github.com/galaxyproject/tools-iuc/tree/main/tools/bwa
`))
	require.NoError(t, err)
	assert.Equal(t, types.RepositoryDescriptor{
		Owner:           "devteam",
		Description:     "Wrapper for the bwa aligner",
		LongDescription: "BWA is a software package for mapping low-divergent sequences.",
		Categories:      []string{"sequence analysis", "next gen mappers"},
	}, desc)
}

func TestParseDescriptorScalarCategory(t *testing.T) {
	desc, err := ParseDescriptor([]byte("owner: iuc\ncategories: Statistics\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"statistics"}, desc.Categories)
}

func TestParseDescriptorInvalid(t *testing.T) {
	_, err := ParseDescriptor([]byte("owner: [unclosed"))
	assert.Error(t, err)
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("toolshed.g2.bx.psu.edu/repos/devteam/bwa/bwa_mem/0.7.17.2")
	require.NoError(t, err)
	assert.Equal(t, Reference{
		Raw:        "toolshed.g2.bx.psu.edu/repos/devteam/bwa/bwa_mem/0.7.17.2",
		Host:       "toolshed.g2.bx.psu.edu",
		Owner:      "devteam",
		Repository: "bwa",
		Tool:       "bwa_mem",
		Version:    "0.7.17.2",
	}, ref)

	for _, bad := range []string{
		"Cut1",
		"upload1",
		"toolshed.g2.bx.psu.edu/repos/devteam/bwa",
		"toolshed.g2.bx.psu.edu/other/devteam/bwa/bwa_mem/1.0",
		"toolshed.g2.bx.psu.edu/repos//bwa/bwa_mem/1.0",
	} {
		_, err := ParseReference(bad)
		assert.ErrorIs(t, err, ErrNotToolShed, bad)
	}
	assert.True(t, IsReference("toolshed.example.org/repos/o/r/t/1"))
	assert.False(t, IsReference("toolshedfoo/repos/o/r/t/1"))
}

func newTestClient() *client.Client {
	opts := client.DefaultOptions()
	opts.RetryMax = 0
	return client.NewClient(opts)
}

func TestInstallInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/repositories/get_repository_revision_install_info", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "bwa", q.Get("name"))
		assert.Equal(t, "devteam", q.Get("owner"))
		if q.Get("changeset_revision") == "missing" {
			_, _ = w.Write([]byte(`[{}, {}, {}]`))
			return
		}
		assert.Equal(t, "3fe632431b68", q.Get("changeset_revision"))
		_, _ = w.Write([]byte(`[
			{"name":"bwa","remote_repository_url":" https://github.com/galaxyproject/tools-iuc/tree/main/tools/bwa "},
			{"changeset_revision":"3fe632431b68"},
			{}
		]`))
	}))
	defer srv.Close()

	ref, err := ParseReference("toolshed.g2.bx.psu.edu/repos/devteam/bwa/bwa_mem/0.7.17.2")
	require.NoError(t, err)
	ts := NewClient(newTestClient(), WithEndpoint(ref.Host, srv.URL+"/"))

	remote, err := ts.InstallInfo(context.Background(), ref, "3fe632431b68")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/galaxyproject/tools-iuc/tree/main/tools/bwa", remote)

	_, err = ts.InstallInfo(context.Background(), ref, "missing")
	assert.ErrorIs(t, err, ErrNoRemoteRepository)
}

func TestInstallInfoDefaultsToReferenceVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0.7.17.2", r.URL.Query().Get("changeset_revision"))
		_, _ = w.Write([]byte(`[{"remote_repository_url":"https://github.com/o/r"}]`))
	}))
	defer srv.Close()

	ref, _ := ParseReference("toolshed.g2.bx.psu.edu/repos/devteam/bwa/bwa_mem/0.7.17.2")
	ts := NewClient(newTestClient(), WithEndpoint(ref.Host, srv.URL))
	remote, err := ts.InstallInfo(context.Background(), ref, "")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/o/r", remote)
}

func TestRepositories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/repositories", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"f9cad7b01a472135","name":"bwa","owner":"devteam","remote_repository_url":"https://github.com/o/r"},
			{"id":"a1","name":"kubernetes","owner":"x","remote_repository_url":""}
		]`))
	}))
	defer srv.Close()

	ts := NewClient(newTestClient(), WithRegistryURL(srv.URL))
	repos, err := ts.Repositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "bwa", repos[0].Name)
	assert.Equal(t, "https://github.com/o/r", repos[0].RemoteRepositoryURL)
}
