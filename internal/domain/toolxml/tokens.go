package toolxml

import (
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var (
	tokenExpr  = xpath.MustCompile("//token")
	importExpr = xpath.MustCompile("//macros/import")
)

// Tokens is an ordered set of token definitions. Redefining a token replaces
// its value but keeps its original position.
type Tokens struct {
	names  []string
	values map[string]string
}

// NewTokens creates an empty token set
func NewTokens() *Tokens {
	return &Tokens{values: make(map[string]string)}
}

// Set defines or redefines a token
func (t *Tokens) Set(name, value string) {
	if name == "" {
		return
	}
	if _, ok := t.values[name]; !ok {
		t.names = append(t.names, name)
	}
	t.values[name] = value
}

// Get returns a token value
func (t *Tokens) Get(name string) (string, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Len returns the number of tokens
func (t *Tokens) Len() int {
	return len(t.names)
}

// Each visits tokens in definition order
func (t *Tokens) Each(fn func(name, value string)) {
	for _, name := range t.names {
		fn(name, t.values[name])
	}
}

// Merge adds every token of other in its order
func (t *Tokens) Merge(other *Tokens) {
	other.Each(t.Set)
}

// ExtractTokens collects every named token element of a document
func ExtractTokens(doc *xmlquery.Node) *Tokens {
	tokens := NewTokens()
	for _, n := range xmlquery.QuerySelectorAll(doc, tokenExpr) {
		tokens.Set(n.SelectAttr("name"), leadingText(n))
	}
	return tokens
}

// MacroImports returns the file names imported by a document, in order
func MacroImports(doc *xmlquery.Node) []string {
	var imports []string
	for _, n := range xmlquery.QuerySelectorAll(doc, importExpr) {
		if name := trimmed(n.InnerText()); name != "" {
			imports = append(imports, name)
		}
	}
	return imports
}
