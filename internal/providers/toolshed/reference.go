package toolshed

import (
	"errors"
	"fmt"
	"strings"
)

// ReferencePrefix marks a tool id as ToolShed-addressed
const ReferencePrefix = "toolshed."

// ErrNotToolShed is returned for tool ids that are not ToolShed references
var ErrNotToolShed = errors.New("not a toolshed tool reference")

// Reference is a parsed ToolShed tool id:
// {host}/repos/{owner}/{repository}/{tool}/{version}
type Reference struct {
	Raw        string
	Host       string
	Owner      string
	Repository string
	Tool       string
	Version    string
}

// IsReference reports whether a tool id is ToolShed-addressed
func IsReference(toolID string) bool {
	return strings.HasPrefix(toolID, ReferencePrefix)
}

// ParseReference parses a ToolShed-addressed tool id
func ParseReference(toolID string) (Reference, error) {
	if !IsReference(toolID) {
		return Reference{}, fmt.Errorf("%w: %q", ErrNotToolShed, toolID)
	}
	parts := strings.Split(strings.Trim(toolID, "/"), "/")
	if len(parts) < 6 || parts[1] != "repos" {
		return Reference{}, fmt.Errorf("%w: malformed reference %q", ErrNotToolShed, toolID)
	}
	for _, p := range parts {
		if p == "" {
			return Reference{}, fmt.Errorf("%w: malformed reference %q", ErrNotToolShed, toolID)
		}
	}

	return Reference{
		Raw:        toolID,
		Host:       parts[0],
		Owner:      parts[2],
		Repository: parts[3],
		Tool:       parts[4],
		Version:    parts[len(parts)-1],
	}, nil
}

// String returns the original tool id
func (r Reference) String() string {
	return r.Raw
}
