package toolxml

import (
	"context"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

var (
	inputsExpr  = xpath.MustCompile(".//inputs//*")
	outputsExpr = xpath.MustCompile(".//outputs//*")
)

// Source is one candidate definition file and the folder it was found in
type Source struct {
	Text      string
	Listing   types.Listing
	FolderURL string
}

// DescriptorFunc supplies the repository descriptor of the folder being parsed
type DescriptorFunc func(ctx context.Context) (types.RepositoryDescriptor, error)

// Parser turns tool XML into ToolDefinitions
type Parser struct {
	macros    *MacroResolver
	sub       Substituter
	maxPasses int
	logger    *zap.Logger
}

// Option configures a Parser
type Option func(*Parser)

// WithSubstituter replaces the default text substituter
func WithSubstituter(sub Substituter) Option {
	return func(p *Parser) {
		p.sub = sub
	}
}

// WithMaxPasses bounds fixpoint expansion
func WithMaxPasses(n int) Option {
	return func(p *Parser) {
		p.maxPasses = n
	}
}

// WithLogger sets the parser logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a tool parser
func NewParser(fetcher TextFetcher, opts ...Option) *Parser {
	p := &Parser{
		sub:       TextSubstituter{},
		maxPasses: DefaultMaxPasses,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.macros = NewMacroResolver(fetcher, p.logger)
	return p
}

// Resolve expands a tool document. It returns nil without error when the
// text is not a tool definition.
func (p *Parser) Resolve(ctx context.Context, text string, listing types.Listing) (*xmlquery.Node, error) {
	doc, err := ParseDocument(text)
	if err != nil || !IsTool(doc) {
		return nil, nil
	}

	tokens, err := p.macros.Tokens(ctx, doc, listing)
	if err != nil {
		return nil, err
	}
	expanded := Expand(text, tokens, p.sub, p.maxPasses)
	if expanded == text {
		return doc, nil
	}

	doc, err = ParseDocument(expanded)
	if err != nil || !IsTool(doc) {
		return nil, nil
	}
	return doc, nil
}

// Parse resolves and extracts one tool definition. descriptor is only
// called once the text is known to be a tool.
func (p *Parser) Parse(ctx context.Context, src Source, descriptor DescriptorFunc) (*types.ToolDefinition, error) {
	doc, err := p.Resolve(ctx, src.Text, src.Listing)
	if err != nil || doc == nil {
		return nil, err
	}

	var desc types.RepositoryDescriptor
	if descriptor != nil {
		if desc, err = descriptor(ctx); err != nil {
			return nil, err
		}
	}
	tool := Extract(doc, desc, src.FolderURL)
	return &tool, nil
}

// Extract reads identity and parameters from an expanded tool document
func Extract(doc *xmlquery.Node, desc types.RepositoryDescriptor, folderURL string) types.ToolDefinition {
	root := Root(doc)
	return types.ToolDefinition{
		ID:                  root.SelectAttr("id"),
		Name:                root.SelectAttr("name"),
		Version:             root.SelectAttr("version"),
		Description:         desc.FuseDescription(childText(root, "description")),
		Owner:               desc.Owner,
		Categories:          append([]string{}, desc.Categories...),
		Inputs:              collect(root, inputsExpr, types.KindParam),
		Outputs:             collect(root, outputsExpr, types.KindData),
		SourceRepositoryURL: folderURL,
	}
}

// collect gathers named parameters of one kind, first declaration wins
func collect(root *xmlquery.Node, expr *xpath.Expr, kind string) []types.ParameterDeclaration {
	params := []types.ParameterDeclaration{}
	seen := make(map[string]struct{})
	for _, n := range xmlquery.QuerySelectorAll(root, expr) {
		if !strings.EqualFold(n.Data, kind) {
			continue
		}
		name := strings.TrimSpace(n.SelectAttr("name"))
		if name == "" {
			continue
		}
		ptype := n.SelectAttr("type")
		if kind == types.KindParam && ptype == "select" {
			continue
		}
		if kind == types.KindData {
			ptype = types.KindData
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		params = append(params, types.ParameterDeclaration{
			Name:     name,
			Kind:     kind,
			Type:     ptype,
			Formats:  types.SplitFormats(n.SelectAttr("format")),
			Label:    n.SelectAttr("label"),
			Optional: strings.EqualFold(strings.TrimSpace(n.SelectAttr("optional")), "true"),
		})
	}
	return params
}
