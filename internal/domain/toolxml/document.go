package toolxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html/charset"
)

// ToolTag is the root element of a tool definition
const ToolTag = "tool"

// ErrMalformed is returned for text that is not a single well-formed XML document
var ErrMalformed = errors.New("malformed xml document")

// ParseDocument parses text as a single-rooted XML document. Stray top-level
// text, a missing root or multiple roots are rejected.
func ParseDocument(text string) (*xmlquery.Node, error) {
	if err := checkWellFormed(text); err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if Root(doc) == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return doc, nil
}

// checkWellFormed walks the token stream once. encoding/xml accepts any
// number of top-level elements and text, which a document must not have.
func checkWellFormed(text string) error {
	d := xml.NewDecoder(strings.NewReader(text))
	d.CharsetReader = charset.NewReaderLabel

	depth, roots := 0, 0
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return fmt.Errorf("%w: multiple root elements", ErrMalformed)
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("%w: text outside root element", ErrMalformed)
			}
		}
	}
	if roots == 0 {
		return fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return nil
}

// Root returns the document element
func Root(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// IsTool reports whether the document element is a tool
func IsTool(doc *xmlquery.Node) bool {
	root := Root(doc)
	return root != nil && root.Data == ToolTag
}

// leadingText returns the text of an element up to its first child node
func leadingText(n *xmlquery.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.TextNode && c.Type != xmlquery.CharDataNode {
			break
		}
		b.WriteString(c.Data)
	}
	return b.String()
}

// childText returns the trimmed text of the first direct child with the given tag
func childText(n *xmlquery.Node, tag string) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == tag {
			return strings.TrimSpace(c.InnerText())
		}
	}
	return ""
}
