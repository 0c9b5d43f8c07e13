// Package workflow decodes Galaxy workflow (.ga) step graphs and resolves
// their boundary steps to ToolShed tool definitions.
//
// Boundary outputs are steps no other step consumes, counted over input
// connections. Boundary inputs are data, collection and parameter input
// steps. The tools wired directly to boundary inputs and the tools of
// boundary output steps are resolved through a ToolSource; a reference
// that cannot be resolved is dropped with a warning.
package workflow
