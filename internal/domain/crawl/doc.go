// Package crawl walks repository folders for tool definitions.
//
// A Scheduler is one crawl session. It owns an explicit work queue drained
// by a bounded worker pool, a per-host concurrency cap and the set of
// folders already visited. Rate limiting is host-scoped: a 403 trips the
// HTTP client's cooldown gate, the folder goes back on the queue and is
// listed again from scratch once the host reopens, up to the retry policy.
//
// Folder rules:
//   - a folder listing a .shed.yml marker is a tool root: its .xml files
//     are parsed and its subfolders are not visited
//   - any other folder is descended into
//   - folders whose URL mentions "deprecated" are pruned without a request
//
// A failing folder is reported as a FolderError and never stops its siblings.
package crawl
