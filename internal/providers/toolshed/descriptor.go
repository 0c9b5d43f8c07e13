package toolshed

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// shedFile mirrors the fields of .shed.yml the harvester reads.
// Categories is loose because some repositories write a single string.
type shedFile struct {
	Name            string      `yaml:"name"`
	Owner           string      `yaml:"owner"`
	Description     string      `yaml:"description"`
	LongDescription string      `yaml:"long_description"`
	Categories      interface{} `yaml:"categories"`
}

// ParseDescriptor parses a .shed.yml document
func ParseDescriptor(data []byte) (types.RepositoryDescriptor, error) {
	var raw shedFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return types.RepositoryDescriptor{}, fmt.Errorf("parse .shed.yml: %w", err)
	}

	return types.RepositoryDescriptor{
		Owner:           strings.TrimSpace(raw.Owner),
		Description:     strings.TrimSpace(raw.Description),
		LongDescription: strings.TrimSpace(raw.LongDescription),
		Categories:      types.NormalizeCategories(stringList(raw.Categories)),
	}, nil
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
