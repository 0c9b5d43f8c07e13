// Package providers groups the clients for the external sources the
// harvester reads from.
//
// Available Providers:
//   - http/client: Rate limited HTTP access with retries and per-host gating
//   - github: Contents API listings and recursive tool folder discovery
//   - toolshed: Tool Shed install info and repository lookups
//   - workflowhub: GA4GH TRS listing and workflow archive downloads
//   - localrepo: Tool folder discovery in a local checkout
//
// Every provider reports failures as errors and leaves retry policy to
// the http client and the crawl scheduler.
package providers
