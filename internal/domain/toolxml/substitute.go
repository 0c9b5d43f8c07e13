package toolxml

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxPasses bounds fixpoint expansion of self-growing tokens
	DefaultMaxPasses = 64
	// MaxExpandedSize caps the expanded document size in bytes
	MaxExpandedSize = 8 << 20
)

// Substituter performs one substitution pass over a whole document
type Substituter interface {
	Substitute(text string, tokens *Tokens) string
}

// TextSubstituter replaces every occurrence of each token name, in token order
type TextSubstituter struct{}

// Substitute implements Substituter
func (TextSubstituter) Substitute(text string, tokens *Tokens) string {
	tokens.Each(func(name, value string) {
		text = strings.ReplaceAll(text, name, value)
	})
	return text
}

// BoundarySubstituter replaces a token name only where it is not embedded in
// a longer identifier
type BoundarySubstituter struct{}

// Substitute implements Substituter
func (BoundarySubstituter) Substitute(text string, tokens *Tokens) string {
	tokens.Each(func(name, value string) {
		text = replaceWhole(text, name, value)
	})
	return text
}

func replaceWhole(text, name, value string) string {
	var b strings.Builder
	last, replaced := 0, false
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], name)
		if i < 0 {
			break
		}
		i += start
		end := i + len(name)
		if atBoundary(text, name, i, end) {
			b.WriteString(text[last:i])
			b.WriteString(value)
			last, replaced = end, true
		}
		start = end
	}
	if !replaced {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// atBoundary reports whether text[i:end] is not glued to surrounding identifier characters
func atBoundary(text, name string, i, end int) bool {
	if i > 0 && isWordByte(text[i-1]) && isWordByte(name[0]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) && isWordByte(name[len(name)-1]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// SubstituterFor returns the substituter for a configured strategy name
func SubstituterFor(strategy string) (Substituter, error) {
	switch strategy {
	case "", "text":
		return TextSubstituter{}, nil
	case "boundary":
		return BoundarySubstituter{}, nil
	default:
		return nil, fmt.Errorf("unknown substitution strategy %q", strategy)
	}
}

// Expand applies sub until the text stops changing. A pass whose result no
// longer parses, or grows past MaxExpandedSize, is discarded and expansion
// stops with the last valid text.
func Expand(text string, tokens *Tokens, sub Substituter, maxPasses int) string {
	if tokens.Len() == 0 {
		return text
	}
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	current := text
	for pass := 0; pass < maxPasses; pass++ {
		next := sub.Substitute(current, tokens)
		if next == current || len(next) > MaxExpandedSize {
			return current
		}
		if _, err := ParseDocument(next); err != nil {
			return current
		}
		current = next
	}
	return current
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
