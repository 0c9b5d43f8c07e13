package workflow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Step types that make a step a boundary input
const (
	StepDataInput           = "data_input"
	StepDataCollectionInput = "data_collection_input"
	StepParameterInput      = "parameter_input"
	StepTool                = "tool"
)

// Connection is one upstream link of a step input
type Connection struct {
	SourceID   string
	OutputName string
}

// Step is one node of a workflow graph
type Step struct {
	ID                string
	Type              string
	ToolID            string
	ContentID         string
	ChangesetRevision string
	Name              string
	Label             string
	Optional          bool
	// InputConnections maps an input name to its upstream links
	InputConnections map[string][]Connection
}

// ToolReference returns the step's tool id, falling back to the content id
func (s Step) ToolReference() string {
	if s.ToolID != "" {
		return s.ToolID
	}
	return s.ContentID
}

// IsInput reports whether the step is a boundary input kind
func (s Step) IsInput() bool {
	switch s.Type {
	case StepDataInput, StepDataCollectionInput, StepParameterInput:
		return true
	}
	return false
}

// IsTool reports whether the step runs a tool
func (s Step) IsTool() bool {
	return strings.EqualFold(s.Type, StepTool)
}

// Sources returns every upstream step id, inputs in name order
func (s Step) Sources() []string {
	names := make([]string, 0, len(s.InputConnections))
	for name := range s.InputConnections {
		names = append(names, name)
	}
	sort.Strings(names)

	var ids []string
	for _, name := range names {
		for _, c := range s.InputConnections[name] {
			ids = append(ids, c.SourceID)
		}
	}
	return ids
}

// Graph is a decoded workflow
type Graph struct {
	UUID       string
	Name       string
	Version    string
	Annotation string
	Tags       []string
	Steps      map[string]Step
}

type rawWorkflow struct {
	UUID       string             `json:"uuid"`
	Name       string             `json:"name"`
	Version    interface{}        `json:"version"`
	Annotation string             `json:"annotation"`
	Tags       []string           `json:"tags"`
	Steps      map[string]rawStep `json:"steps"`
}

type rawStep struct {
	ID                 interface{}            `json:"id"`
	Type               string                 `json:"type"`
	ToolID             *string                `json:"tool_id"`
	ContentID          *string                `json:"content_id"`
	Name               string                 `json:"name"`
	Label              *string                `json:"label"`
	ToolShedRepository *rawShedRepository     `json:"tool_shed_repository"`
	InputConnections   map[string]interface{} `json:"input_connections"`
	ToolState          interface{}            `json:"tool_state"`
}

type rawShedRepository struct {
	ChangesetRevision string `json:"changeset_revision"`
	Name              string `json:"name"`
	Owner             string `json:"owner"`
	ToolShed          string `json:"tool_shed"`
}

// ParseGraph decodes a .ga workflow document
func ParseGraph(data []byte) (*Graph, error) {
	var raw rawWorkflow
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if raw.Steps == nil {
		return nil, fmt.Errorf("decode workflow: no steps")
	}

	g := &Graph{
		UUID:       raw.UUID,
		Name:       raw.Name,
		Version:    scalarString(raw.Version),
		Annotation: raw.Annotation,
		Tags:       raw.Tags,
		Steps:      make(map[string]Step, len(raw.Steps)),
	}
	for key, rs := range raw.Steps {
		step := Step{
			ID:               key,
			Type:             rs.Type,
			ToolID:           deref(rs.ToolID),
			ContentID:        deref(rs.ContentID),
			Name:             rs.Name,
			Label:            deref(rs.Label),
			Optional:         optionalState(rs.ToolState),
			InputConnections: make(map[string][]Connection, len(rs.InputConnections)),
		}
		if rs.ToolShedRepository != nil {
			step.ChangesetRevision = rs.ToolShedRepository.ChangesetRevision
		}
		for name, conn := range rs.InputConnections {
			step.InputConnections[name] = decodeConnections(conn)
		}
		g.Steps[key] = step
	}
	return g, nil
}

// decodeConnections accepts a single {"id": …} object or a list of them
func decodeConnections(v interface{}) []Connection {
	switch t := v.(type) {
	case map[string]interface{}:
		if c, ok := decodeConnection(t); ok {
			return []Connection{c}
		}
	case []interface{}:
		conns := make([]Connection, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				if c, ok := decodeConnection(m); ok {
					conns = append(conns, c)
				}
			}
		}
		return conns
	}
	return nil
}

func decodeConnection(m map[string]interface{}) (Connection, bool) {
	id := scalarString(m["id"])
	if id == "" {
		return Connection{}, false
	}
	out, _ := m["output_name"].(string)
	return Connection{SourceID: id, OutputName: out}, true
}

// optionalState reads "optional" from an input step's tool_state, which is
// either an object or a JSON-encoded string
func optionalState(v interface{}) bool {
	var state map[string]interface{}
	switch t := v.(type) {
	case map[string]interface{}:
		state = t
	case string:
		if err := sonic.UnmarshalString(t, &state); err != nil {
			return false
		}
	default:
		return false
	}
	opt, _ := state["optional"].(bool)
	return opt
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StepIDs returns the step ids in numeric order, non-numeric ids last
func (g *Graph) StepIDs() []string {
	ids := make([]string, 0, len(g.Steps))
	for id := range g.Steps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.Atoi(ids[i])
		b, berr := strconv.Atoi(ids[j])
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// ReferenceCounts counts how often each step is consumed. Dangling ids are
// ignored and a step consuming itself counts.
func (g *Graph) ReferenceCounts() map[string]int {
	counts := make(map[string]int, len(g.Steps))
	for id := range g.Steps {
		counts[id] = 0
	}
	for _, step := range g.Steps {
		for _, src := range step.Sources() {
			if _, ok := counts[src]; ok {
				counts[src]++
			}
		}
	}
	return counts
}

// BoundaryOutputs returns the steps nothing consumes
func (g *Graph) BoundaryOutputs() []Step {
	counts := g.ReferenceCounts()
	var out []Step
	for _, id := range g.StepIDs() {
		if counts[id] == 0 {
			out = append(out, g.Steps[id])
		}
	}
	return out
}

// BoundaryInputs returns the input kind steps
func (g *Graph) BoundaryInputs() []Step {
	var in []Step
	for _, id := range g.StepIDs() {
		if g.Steps[id].IsInput() {
			in = append(in, g.Steps[id])
		}
	}
	return in
}

// InputTools returns tool steps fed directly by a boundary input
func (g *Graph) InputTools() []Step {
	inputs := make(map[string]struct{})
	for _, s := range g.BoundaryInputs() {
		inputs[s.ID] = struct{}{}
	}

	var tools []Step
	for _, id := range g.StepIDs() {
		step := g.Steps[id]
		if !step.IsTool() {
			continue
		}
		for _, src := range step.Sources() {
			if _, ok := inputs[src]; ok {
				tools = append(tools, step)
				break
			}
		}
	}
	return tools
}

// ToolReferences returns every tool step's reference with the given prefix
func (g *Graph) ToolReferences(prefix string) []string {
	refs := []string{}
	for _, id := range g.StepIDs() {
		step := g.Steps[id]
		if !step.IsTool() {
			continue
		}
		if ref := step.ToolReference(); strings.HasPrefix(ref, prefix) {
			refs = append(refs, ref)
		}
	}
	return refs
}
