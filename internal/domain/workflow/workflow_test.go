package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

const linearWorkflow = `{
  "a_galaxy_workflow": "true",
  "format-version": "0.1",
  "name": "QC and trim",
  "uuid": "8d1c1a43-3f0f-4b1e-9d8d-2f4f0a7f1c11",
  "version": 3,
  "annotation": "Quality control",
  "tags": ["qc", "fastq"],
  "steps": {
    "0": {
      "id": 0,
      "type": "data_input",
      "name": "Input dataset",
      "label": "reads",
      "tool_id": null,
      "tool_state": "{\"optional\": true, \"format\": [\"fastqsanger\"]}",
      "input_connections": {}
    },
    "1": {
      "id": 1,
      "type": "tool",
      "name": "fastp",
      "tool_id": "toolshed.g2.bx.psu.edu/repos/iuc/fastp/fastp/0.23.4+galaxy0",
      "content_id": "toolshed.g2.bx.psu.edu/repos/iuc/fastp/fastp/0.23.4+galaxy0",
      "tool_shed_repository": {"changeset_revision": "1e1e5a9e4b2f", "name": "fastp", "owner": "iuc", "tool_shed": "toolshed.g2.bx.psu.edu"},
      "input_connections": {"single_paired|in1": {"id": 0, "output_name": "output"}}
    },
    "2": {
      "id": 2,
      "type": "tool",
      "name": "MultiQC",
      "tool_id": null,
      "content_id": "toolshed.g2.bx.psu.edu/repos/iuc/multiqc/multiqc/1.11+galaxy1",
      "input_connections": {"results_0|software_cond|input": [{"id": "1", "output_name": "report_json"}]}
    }
  }
}`

func TestParseGraph(t *testing.T) {
	g, err := ParseGraph([]byte(linearWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "QC and trim", g.Name)
	assert.Equal(t, "3", g.Version)
	assert.Equal(t, []string{"qc", "fastq"}, g.Tags)
	assert.Equal(t, []string{"0", "1", "2"}, g.StepIDs())

	input := g.Steps["0"]
	assert.True(t, input.IsInput())
	assert.True(t, input.Optional)
	assert.Equal(t, "reads", input.Label)
	assert.Equal(t, "", input.ToolReference())

	fastp := g.Steps["1"]
	assert.Equal(t, "1e1e5a9e4b2f", fastp.ChangesetRevision)
	assert.Equal(t, []Connection{{SourceID: "0", OutputName: "output"}}, fastp.InputConnections["single_paired|in1"])

	multiqc := g.Steps["2"]
	assert.Equal(t, "toolshed.g2.bx.psu.edu/repos/iuc/multiqc/multiqc/1.11+galaxy1", multiqc.ToolReference())
	assert.Equal(t, []string{"1"}, multiqc.Sources())
}

func TestParseGraphInvalid(t *testing.T) {
	_, err := ParseGraph([]byte(`not json`))
	assert.Error(t, err)
	_, err = ParseGraph([]byte(`{"name": "no steps"}`))
	assert.Error(t, err)
}

func TestBoundariesOfLinearWorkflow(t *testing.T) {
	g, err := ParseGraph([]byte(linearWorkflow))
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, stepIDs(g.BoundaryOutputs()))
	assert.Equal(t, []string{"0"}, stepIDs(g.BoundaryInputs()))
	assert.Equal(t, []string{"1"}, stepIDs(g.InputTools()))
	assert.Equal(t, []string{
		"toolshed.g2.bx.psu.edu/repos/iuc/fastp/fastp/0.23.4+galaxy0",
		"toolshed.g2.bx.psu.edu/repos/iuc/multiqc/multiqc/1.11+galaxy1",
	}, g.ToolReferences("toolshed"))
}

func TestBoundaryOutputsDegenerateGraphs(t *testing.T) {
	g := &Graph{Steps: map[string]Step{
		"0": {ID: "0", Type: StepDataInput},
		"1": {ID: "1", Type: StepTool, InputConnections: map[string][]Connection{
			"self": {{SourceID: "1"}},
			"in":   {{SourceID: "0"}},
		}},
		"2": {ID: "2", Type: StepTool, InputConnections: map[string][]Connection{
			"ghost": {{SourceID: "99"}},
		}},
		"3": {ID: "3", Type: StepTool},
	}}

	counts := g.ReferenceCounts()
	assert.Equal(t, map[string]int{"0": 1, "1": 1, "2": 0, "3": 0}, counts)
	// the self-consuming step is not an output, the dangling one is
	assert.Equal(t, []string{"2", "3"}, stepIDs(g.BoundaryOutputs()))

	outputs := map[string]bool{"2": true, "3": true}
	for _, id := range g.StepIDs() {
		assert.Equal(t, counts[id] == 0, outputs[id], id)
	}
}

func TestStepIDsOrdering(t *testing.T) {
	g := &Graph{Steps: map[string]Step{"10": {}, "2": {}, "b": {}, "a": {}, "0": {}}}
	assert.Equal(t, []string{"0", "2", "10", "a", "b"}, g.StepIDs())
}

type fakeTools struct {
	mu        sync.Mutex
	tools     map[string]types.ToolDefinition
	calls     []string
	revisions []string
}

func (f *fakeTools) ResolveTool(ctx context.Context, ref toolshed.Reference, revision string) (*types.ToolDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref.Raw)
	f.revisions = append(f.revisions, revision)
	tool, ok := f.tools[ref.Tool]
	if !ok {
		return nil, errors.New("tool not found")
	}
	return &tool, nil
}

func TestResolverResolvesLinearWorkflowBoundaries(t *testing.T) {
	g, err := ParseGraph([]byte(linearWorkflow))
	require.NoError(t, err)

	src := &fakeTools{tools: map[string]types.ToolDefinition{
		"fastp": {
			ID:     "fastp",
			Inputs: []types.ParameterDeclaration{{Name: "in1", Kind: types.KindParam, Type: "data", Formats: []string{"fastqsanger", "fastqsanger.gz"}}},
		},
		"multiqc": {
			ID:      "multiqc",
			Outputs: []types.ParameterDeclaration{{Name: "html_report", Kind: types.KindData, Type: "data", Formats: []string{"html"}}},
		},
	}}

	res, err := NewResolver(src, nil, nil).Resolve(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, "8d1c1a43-3f0f-4b1e-9d8d-2f4f0a7f1c11", res.UUID)
	assert.Equal(t, "Quality control", res.Description)
	assert.Len(t, res.ToolShedToolReferences, 2)
	require.Len(t, res.ResolvedInputTools, 1)
	assert.Equal(t, "fastp", res.ResolvedInputTools[0].ID)
	require.Len(t, res.ResolvedOutputTools, 1)
	assert.Equal(t, "multiqc", res.ResolvedOutputTools[0].ID)
	assert.Equal(t, []string{"fastqsanger", "fastqsanger.gz"}, res.InputFormats)
	assert.Equal(t, []string{"html"}, res.OutputFormats)
	assert.Equal(t, []string{"1e1e5a9e4b2f", ""}, src.revisions)
}

func TestResolverDropsFailuresAndDeduplicates(t *testing.T) {
	g := &Graph{Steps: map[string]Step{
		"0": {ID: "0", Type: StepDataInput},
		"1": {ID: "1", Type: StepTool, ToolID: "toolshed.g2.bx.psu.edu/repos/iuc/bwa/bwa_mem/0.7.17", InputConnections: map[string][]Connection{"in": {{SourceID: "0"}}}},
		"2": {ID: "2", Type: StepTool, ToolID: "toolshed.g2.bx.psu.edu/repos/iuc/bwa/bwa_mem/0.7.18", InputConnections: map[string][]Connection{"in": {{SourceID: "0"}}}},
		"3": {ID: "3", Type: StepTool, ToolID: "Cut1", InputConnections: map[string][]Connection{"in": {{SourceID: "0"}}}},
		"4": {ID: "4", Type: StepTool, ToolID: "toolshed.g2.bx.psu.edu/repos/iuc/missing/missing/1.0", InputConnections: map[string][]Connection{"in": {{SourceID: "0"}}}},
		"5": {ID: "5", Type: StepTool, ToolID: "toolshed.broken", InputConnections: map[string][]Connection{"in": {{SourceID: "0"}}}},
	}}
	src := &fakeTools{tools: map[string]types.ToolDefinition{"bwa_mem": {ID: "bwa_mem"}}}

	res, err := NewResolver(src, nil, nil).Resolve(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, []string{"bwa_mem"}, toolIDs(res.ResolvedInputTools))
	// every tool step is unconsumed, so the output side resolves them too
	assert.Equal(t, []string{"bwa_mem"}, toolIDs(res.ResolvedOutputTools))
	assert.Equal(t, []string{
		"toolshed.g2.bx.psu.edu/repos/iuc/bwa/bwa_mem/0.7.17",
		"toolshed.g2.bx.psu.edu/repos/iuc/missing/missing/1.0",
		"toolshed.g2.bx.psu.edu/repos/iuc/bwa/bwa_mem/0.7.17",
		"toolshed.g2.bx.psu.edu/repos/iuc/missing/missing/1.0",
	}, src.calls)
}

func TestResolverCancelled(t *testing.T) {
	g, err := ParseGraph([]byte(linearWorkflow))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewResolver(&fakeTools{}, nil, nil).Resolve(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func stepIDs(steps []Step) []string {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	return ids
}

func toolIDs(tools []types.ToolDefinition) []string {
	ids := make([]string, 0, len(tools))
	for _, t := range tools {
		ids = append(ids, t.ID)
	}
	return ids
}
