// Package toolxml resolves Galaxy tool XML definitions into ToolDefinitions.
//
// Key Components:
//   - ParseDocument: strict single-root XML parsing
//   - MacroResolver: follows macro imports and collects named tokens
//   - Substituter / Expand: token substitution repeated to a fixpoint, never
//     leaving the document unparseable
//   - Parser: extracts identity, inputs and outputs and fuses repository
//     descriptor metadata
//
// Example:
//
//	p := toolxml.NewParser(fetcher)
//	tool, err := p.Parse(ctx, toolxml.Source{Text: raw, Listing: listing, FolderURL: folder}, descriptor)
//	if err != nil {
//	    return err
//	}
//	if tool == nil {
//	    // not a tool definition
//	}
package toolxml
