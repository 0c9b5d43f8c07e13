package types

import "strings"

// Parameter kinds, taken from the element tag that declared them
const (
	KindParam = "param"
	KindData  = "data"
)

// ParameterDeclaration is one declared input or output of a tool
type ParameterDeclaration struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Type     string   `json:"type,omitempty"`
	Formats  []string `json:"formats,omitempty"`
	Label    string   `json:"label,omitempty"`
	Optional bool     `json:"optional"`
}

// ToolDefinition is the identity and schema snapshot of one tool at one revision
type ToolDefinition struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	Version             string                 `json:"version,omitempty"`
	Description         string                 `json:"description"`
	Owner               string                 `json:"owner"`
	Categories          []string               `json:"categories"`
	Inputs              []ParameterDeclaration `json:"inputs"`
	Outputs             []ParameterDeclaration `json:"outputs"`
	SourceRepositoryURL string                 `json:"source_repository_url"`
}

// Formats returns the union of formats declared by the given parameters, first-seen order
func Formats(params []ParameterDeclaration) []string {
	seen := make(map[string]struct{})
	formats := []string{}
	for _, p := range params {
		for _, f := range p.Formats {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			formats = append(formats, f)
		}
	}
	return formats
}

// SplitFormats splits a comma separated format attribute into a set
func SplitFormats(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	formats := []string{}
	for _, part := range strings.Split(raw, ",") {
		f := strings.TrimSpace(part)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	return formats
}

// RepositoryDescriptor holds the repository-level metadata of a tool folder
type RepositoryDescriptor struct {
	Owner           string   `json:"owner"`
	Description     string   `json:"description"`
	LongDescription string   `json:"long_description"`
	Categories      []string `json:"categories"`
}

// NormalizeCategories lower-cases and trims categories, dropping empty entries
func NormalizeCategories(raw []string) []string {
	categories := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			categories = append(categories, c)
		}
	}
	return categories
}

// FuseDescription picks the tool description, falling back to the long then short repository description
func (d RepositoryDescriptor) FuseDescription(toolDescription string) string {
	if s := strings.TrimSpace(toolDescription); s != "" {
		return s
	}
	if d.LongDescription != "" {
		return d.LongDescription
	}
	return d.Description
}

// Entry types reported by a directory listing
const (
	EntryFile    = "file"
	EntryDir     = "dir"
	EntrySymlink = "symlink"
)

// ContentEntry is one item of a repository directory listing
type ContentEntry struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
	URL         string `json:"url"`
}

// IsFile reports whether the entry can be downloaded as raw content
func (e ContentEntry) IsFile() bool {
	return e.Type == EntryFile || e.Type == EntrySymlink
}

// IsDir reports whether the entry is a sub-listing
func (e ContentEntry) IsDir() bool {
	return e.Type == EntryDir
}

// Listing is an ordered directory listing
type Listing []ContentEntry

// FileURL returns the download URL of the file with the exact given name
func (l Listing) FileURL(name string) (string, bool) {
	for _, e := range l {
		if e.IsFile() && e.Name == name && e.DownloadURL != "" {
			return e.DownloadURL, true
		}
	}
	return "", false
}

// Find returns the first file whose name matches case-insensitively
func (l Listing) Find(name string) (ContentEntry, bool) {
	for _, e := range l {
		if e.IsFile() && strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return ContentEntry{}, false
}
