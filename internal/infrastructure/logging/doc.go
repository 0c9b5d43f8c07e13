// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so command output on stdout stays
// machine readable. Components receive a named child logger:
//
//	logger := logging.NewDefault()
//	crawlLog := logger.Component("crawl")
//	crawlLog.Info("Crawling folder", zap.String("url", folderURL))
package logging
