package crawl

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrRateLimitExhausted is recorded when a folder stays rate limited past the retry policy
var ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

// FolderError is a folder-fatal failure
type FolderError struct {
	URL  string `json:"url"`
	Code int    `json:"code,omitempty"`
	Err  error  `json:"-"`
}

func (e *FolderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("folder %s: status %d: %v", e.URL, e.Code, e.Err)
	}
	return fmt.Sprintf("folder %s: %v", e.URL, e.Err)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}

// CodeString renders the code for crawl records, "unknown" when absent
func (e *FolderError) CodeString() string {
	if e.Code == 0 {
		return "unknown"
	}
	return strconv.Itoa(e.Code)
}
