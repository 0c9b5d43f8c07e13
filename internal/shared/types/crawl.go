package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CrawlStatus represents crawl record lifecycle states
type CrawlStatus string

const (
	StatusPending    CrawlStatus = "pending"
	StatusProcessing CrawlStatus = "processing"
	StatusCompleted  CrawlStatus = "completed"
	StatusError      CrawlStatus = "error"
)

// Artifact and source type labels stored on crawl records
const (
	ArtifactShedTool       = "galaxy_shed_tool"
	ArtifactShedRepository = "galaxy_shed_repository"
	ArtifactGalaxyWorkflow = "galaxy_workflow"
	SourceToolShed         = "toolshed.g2.bx.psu.edu"
	SourceWorkflowHub      = "workflowhub.eu"
)

// CrawlRecord is the state of one repository folder crawl attempt
type CrawlRecord struct {
	ID           string      `json:"id"`
	URL          string      `json:"url"`
	Status       CrawlStatus `json:"status"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ToolCount    int         `json:"tool_count"`
	ArtifactType string      `json:"artifact_type"`
	SourceType   string      `json:"source_type,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewCrawlRecord creates a pending record for a newly discovered URL
func NewCrawlRecord(url, artifactType string) CrawlRecord {
	now := time.Now().UTC()
	return CrawlRecord{
		ID:           uuid.NewString(),
		URL:          url,
		Status:       StatusPending,
		ArtifactType: artifactType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanTransition reports whether a record may move from one status to another.
// Re-entering processing is allowed so an interrupted crawl can resume.
func CanTransition(from, to CrawlStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusError
	default:
		return false
	}
}

// Transition moves the record to a new status
func (r *CrawlRecord) Transition(to CrawlStatus) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("invalid crawl transition %s -> %s for %s", r.Status, to, r.URL)
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks the record completed with the number of tools found
func (r *CrawlRecord) Complete(toolCount int) error {
	if err := r.Transition(StatusCompleted); err != nil {
		return err
	}
	r.ToolCount = toolCount
	r.ErrorCode = ""
	return nil
}

// Fail marks the record as errored with an optional code
func (r *CrawlRecord) Fail(code string) error {
	if err := r.Transition(StatusError); err != nil {
		return err
	}
	r.ErrorCode = code
	return nil
}

// Requeue explicitly resets a finished record to pending
func (r *CrawlRecord) Requeue() {
	r.Status = StatusPending
	r.ErrorCode = ""
	r.UpdatedAt = time.Now().UTC()
}

// Finished reports whether the record reached a terminal status
func (r CrawlRecord) Finished() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}
