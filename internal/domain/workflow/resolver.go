package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

var errNoDefinition = errors.New("no tool definition")

// ToolSource resolves a ToolShed reference to its tool definition.
// revision is the changeset recorded on the step, empty when unknown.
type ToolSource interface {
	ResolveTool(ctx context.Context, ref toolshed.Reference, revision string) (*types.ToolDefinition, error)
}

// Resolver maps workflow boundary steps to ToolShed tool definitions
type Resolver struct {
	tools   ToolSource
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewResolver creates a workflow resolver
func NewResolver(tools ToolSource, metrics *monitoring.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tools: tools, metrics: metrics, logger: logger}
}

// Resolve computes the boundary tools of a workflow. Unresolvable references
// are dropped; only cancellation is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, g *Graph) (*types.WorkflowResolution, error) {
	res := &types.WorkflowResolution{
		UUID:                   g.UUID,
		Name:                   g.Name,
		Version:                g.Version,
		Description:            g.Annotation,
		Tags:                   g.Tags,
		ToolShedToolReferences: g.ToolReferences("toolshed"),
		ResolvedInputTools:     []types.ToolDefinition{},
		ResolvedOutputTools:    []types.ToolDefinition{},
		Inputs:                 []types.ParameterDeclaration{},
		Outputs:                []types.ParameterDeclaration{},
	}

	inputs, err := r.resolveSteps(ctx, g.InputTools(), "input")
	if err != nil {
		return nil, err
	}
	outputs, err := r.resolveSteps(ctx, g.BoundaryOutputs(), "output")
	if err != nil {
		return nil, err
	}

	res.ResolvedInputTools = inputs
	for _, t := range inputs {
		res.Inputs = append(res.Inputs, t.Inputs...)
	}
	res.ResolvedOutputTools = outputs
	for _, t := range outputs {
		res.Outputs = append(res.Outputs, t.Outputs...)
	}
	res.InputFormats = types.Formats(res.Inputs)
	res.OutputFormats = types.Formats(res.Outputs)
	return res, nil
}

// resolveSteps resolves the ToolShed references of steps, once per tool
func (r *Resolver) resolveSteps(ctx context.Context, steps []Step, side string) ([]types.ToolDefinition, error) {
	tools := []types.ToolDefinition{}
	seen := make(map[string]struct{})
	for _, step := range steps {
		raw := step.ToolReference()
		if !toolshed.IsReference(raw) {
			if raw != "" {
				r.logger.Debug("Tool not from ToolShed, skipping",
					zap.String("side", side),
					zap.String("tool_id", raw),
				)
			}
			r.metrics.RecordWorkflowRef("skipped")
			continue
		}
		ref, err := toolshed.ParseReference(raw)
		if err != nil {
			r.logger.Warn("Malformed ToolShed reference, dropping", zap.String("tool_id", raw), zap.Error(err))
			r.metrics.RecordWorkflowRef("dropped")
			continue
		}

		key := ref.Host + "/" + ref.Owner + "/" + ref.Repository + "/" + ref.Tool
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		tool, err := r.tools.ResolveTool(ctx, ref, step.ChangesetRevision)
		if err == nil && tool == nil {
			err = errNoDefinition
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("Could not resolve ToolShed tool, dropping",
				zap.String("side", side),
				zap.String("tool_id", raw),
				zap.Error(err),
			)
			r.metrics.RecordWorkflowRef("dropped")
			continue
		}
		r.metrics.RecordWorkflowRef("resolved")
		tools = append(tools, *tool)
	}
	return tools, nil
}
