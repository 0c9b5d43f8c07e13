package toolxml

import (
	"context"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// TextFetcher downloads raw file content
type TextFetcher interface {
	GetText(ctx context.Context, rawURL string) (string, error)
}

// relativeRedirect marks macro files that only hold a path to the real file
const relativeRedirect = "../"

// MacroResolver follows the macro imports of a tool document
type MacroResolver struct {
	fetcher TextFetcher
	logger  *zap.Logger
}

// NewMacroResolver creates a macro resolver
func NewMacroResolver(fetcher TextFetcher, logger *zap.Logger) *MacroResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MacroResolver{fetcher: fetcher, logger: logger}
}

// Tokens returns the tokens of every imported macro in import order followed
// by the document's own tokens. Missing or unparseable macros are skipped;
// only rate limiting and cancellation are returned as errors.
func (m *MacroResolver) Tokens(ctx context.Context, doc *xmlquery.Node, listing types.Listing) (*Tokens, error) {
	tokens := NewTokens()
	for _, name := range MacroImports(doc) {
		macroURL, ok := listing.FileURL(name)
		if !ok {
			m.logger.Debug("Macro import not found in folder", zap.String("macro", name))
			continue
		}
		macro, err := m.fetch(ctx, macroURL)
		if err != nil {
			if client.Aborts(ctx, err) {
				return nil, err
			}
			m.logger.Warn("Skipping macro file",
				zap.String("macro", name),
				zap.String("url", macroURL),
				zap.Error(err),
			)
			continue
		}
		tokens.Merge(ExtractTokens(macro))
	}
	tokens.Merge(ExtractTokens(doc))
	return tokens, nil
}

// fetch downloads and parses a macro file, following one relative redirect
func (m *MacroResolver) fetch(ctx context.Context, macroURL string) (*xmlquery.Node, error) {
	text, err := m.fetcher.GetText(ctx, macroURL)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(text)
	if err == nil {
		return doc, nil
	}
	if !strings.HasPrefix(text, relativeRedirect) {
		return nil, err
	}

	target, rerr := resolveRelative(macroURL, strings.TrimSpace(text))
	if rerr != nil {
		return nil, rerr
	}
	m.logger.Debug("Following relative macro path",
		zap.String("from", macroURL),
		zap.String("to", target),
	)
	text, err = m.fetcher.GetText(ctx, target)
	if err != nil {
		return nil, err
	}
	return ParseDocument(text)
}

func resolveRelative(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
