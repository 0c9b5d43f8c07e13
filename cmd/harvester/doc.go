// Package main is the harvester command line.
//
// It crawls Galaxy tool repositories on GitHub, extracts tool definitions
// from their XML wrappers and resolves the boundary tools of Galaxy
// workflows through the ToolShed.
//
// Usage:
//
//	# Crawl one repository (content-API root or github.com URL)
//	harvester repo https://github.com/galaxyproject/tools-iuc/tree/main/tools/bwa
//
//	# Resolve a ToolShed tool reference
//	harvester tool toolshed.g2.bx.psu.edu/repos/devteam/bwa/bwa_mem/0.7.17.2
//
//	# Registry runs with persisted records
//	harvester seed && harvester pending
//
//	# Status server
//	harvester serve
//
// Configuration comes from config.toml and .secrets.toml (when present)
// overridden by environment variables such as GITHUB_TOKEN.
package main
