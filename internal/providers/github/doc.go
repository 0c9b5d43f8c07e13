// Package github talks to the GitHub REST API on behalf of the crawler.
//
// Key Components:
//   - ContentsURL: parsed content-API folder URL (owner, repo, path, ref)
//   - ConvertRemoteURL: github.com web URL to content-API root
//   - ListFolder: one directory listing as types.Listing
//   - Indexer: discovers tool root folders from one recursive tree call
//
// Every request goes through the shared HTTP client, so the host cooldown
// gate and transport retries apply here too.
package github
