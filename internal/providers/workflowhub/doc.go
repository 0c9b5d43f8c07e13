// Package workflowhub lists Galaxy workflows published on a Workflow Hub
// through its GA4GH TRS v2 API and downloads their .ga definitions.
package workflowhub
