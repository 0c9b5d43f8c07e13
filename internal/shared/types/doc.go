// Package types provides shared data structures for the harvester.
//
// This package defines the records that flow between the crawler, the
// tool definition parser, the workflow resolver and the record store,
// so every component agrees on one shape per concept.
//
// Core Types:
//   - ToolDefinition: Identity and schema snapshot of one tool at one revision
//   - ParameterDeclaration: One declared input or output of a tool
//   - RepositoryDescriptor: Repository-level metadata from .shed.yml
//   - ContentEntry: One item of a repository directory listing
//
// Crawl State:
//   - CrawlRecord: Status of one repository folder crawl attempt
//   - CrawlStatus: pending, processing, completed, error
//
// Workflow Types:
//   - WorkflowResolution: Boundary tools of a workflow resolved to tool definitions
//
// Example Usage:
//
//	rec := types.NewCrawlRecord(folderURL, types.ArtifactShedTool)
//	if err := rec.Transition(types.StatusProcessing); err != nil {
//	    return err
//	}
package types
