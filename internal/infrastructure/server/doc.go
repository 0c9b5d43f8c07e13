// Package server is the harvester status server: liveness, Prometheus
// metrics and a small JSON API over persisted crawl records.
package server
