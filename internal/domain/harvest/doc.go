// Package harvest ties the providers and crawl engine into end-to-end runs:
// resolving ToolShed references to tool definitions, enumerating and
// crawling registry repositories with persisted records, and streaming
// resolved Workflow Hub workflows.
package harvest
