package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "fastqsanger", want: []string{"fastqsanger"}},
		{name: "list with spaces", raw: "fastqsanger, fastqsanger.gz ,bam", want: []string{"fastqsanger", "fastqsanger.gz", "bam"}},
		{name: "drops empty and duplicates", raw: "bam,,bam, ", want: []string{"bam"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitFormats(tt.raw))
		})
	}
}

func TestFormatsUnion(t *testing.T) {
	params := []ParameterDeclaration{
		{Name: "a", Formats: []string{"bam", "sam"}},
		{Name: "b", Formats: []string{"sam", "vcf"}},
		{Name: "c"},
	}
	assert.Equal(t, []string{"bam", "sam", "vcf"}, Formats(params))
	assert.Empty(t, Formats(nil))
}

func TestNormalizeCategories(t *testing.T) {
	got := NormalizeCategories([]string{" Sequence Analysis ", "", "  ", "Variant Analysis"})
	assert.Equal(t, []string{"sequence analysis", "variant analysis"}, got)
}

func TestFuseDescription(t *testing.T) {
	d := RepositoryDescriptor{Description: "short", LongDescription: "long"}

	assert.Equal(t, "tool level", d.FuseDescription("  tool level "))
	assert.Equal(t, "long", d.FuseDescription(""))
	assert.Equal(t, "short", RepositoryDescriptor{Description: "short"}.FuseDescription(""))
	assert.Equal(t, "", RepositoryDescriptor{}.FuseDescription(""))
}

func TestListingLookup(t *testing.T) {
	listing := Listing{
		{Type: EntryDir, Name: "macros.xml", URL: "dir"},
		{Type: EntryFile, Name: ".Shed.yml", DownloadURL: "raw/shed"},
		{Type: EntrySymlink, Name: "macros.xml", DownloadURL: "raw/macros"},
	}

	url, ok := listing.FileURL("macros.xml")
	require.True(t, ok)
	assert.Equal(t, "raw/macros", url)

	_, ok = listing.FileURL("missing.xml")
	assert.False(t, ok)

	entry, ok := listing.Find(".shed.yml")
	require.True(t, ok)
	assert.Equal(t, "raw/shed", entry.DownloadURL)
}

func TestCrawlRecordTransitions(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		rec := NewCrawlRecord("https://example/folder", ArtifactShedTool)
		assert.Equal(t, StatusPending, rec.Status)
		assert.NotEmpty(t, rec.ID)

		require.NoError(t, rec.Transition(StatusProcessing))
		require.NoError(t, rec.Complete(3))
		assert.Equal(t, StatusCompleted, rec.Status)
		assert.Equal(t, 3, rec.ToolCount)
		assert.True(t, rec.Finished())
	})

	t.Run("error with code", func(t *testing.T) {
		rec := NewCrawlRecord("u", ArtifactShedTool)
		require.NoError(t, rec.Transition(StatusProcessing))
		require.NoError(t, rec.Fail("404"))
		assert.Equal(t, "404", rec.ErrorCode)
	})

	t.Run("never moves backward automatically", func(t *testing.T) {
		rec := NewCrawlRecord("u", ArtifactShedTool)
		require.NoError(t, rec.Transition(StatusProcessing))
		require.NoError(t, rec.Complete(1))

		assert.Error(t, rec.Transition(StatusPending))
		assert.Error(t, rec.Transition(StatusProcessing))
		assert.Error(t, rec.Fail("500"))
		assert.Equal(t, StatusCompleted, rec.Status)
	})

	t.Run("pending cannot complete directly", func(t *testing.T) {
		rec := NewCrawlRecord("u", ArtifactShedTool)
		assert.Error(t, rec.Complete(1))
	})

	t.Run("explicit requeue", func(t *testing.T) {
		rec := NewCrawlRecord("u", ArtifactShedTool)
		require.NoError(t, rec.Transition(StatusProcessing))
		require.NoError(t, rec.Fail("500"))
		rec.Requeue()
		assert.Equal(t, StatusPending, rec.Status)
		assert.Empty(t, rec.ErrorCode)
	})
}
