package objects

import "time"

// QueryStatus is the lifecycle state of one dispatch unit.
type QueryStatus string

const (
	QueryStatusPending   QueryStatus = "PENDING"
	QueryStatusRunning   QueryStatus = "RUNNING"
	QueryStatusCompleted QueryStatus = "COMPLETED"
	QueryStatusFailed    QueryStatus = "FAILED"
	QueryStatusSkipped   QueryStatus = "SKIPPED"
)

// Terminal reports whether the query reached a final status.
func (s QueryStatus) Terminal() bool {
	switch s {
	case QueryStatusCompleted, QueryStatusFailed, QueryStatusSkipped:
		return true
	default:
		return false
	}
}

// ExecutionMode selects how much of the source a query touches.
type ExecutionMode string

const (
	// ExecutionModeMetadataOnly lists matching records without scanning content.
	ExecutionModeMetadataOnly ExecutionMode = "METADATA_ONLY"
	// ExecutionModeContentScan retrieves content and runs the detector pipeline.
	ExecutionModeContentScan ExecutionMode = "CONTENT_SCAN"
)

// QuerySpec is what a connector receives for one collection request.
type QuerySpec struct {
	Subject     string            `json:"subject"`
	Intent      string            `json:"intent,omitempty"`
	Mode        ExecutionMode     `json:"mode"`
	Constraints map[string]string `json:"constraints,omitempty"`
}

// Query is one dispatch unit belonging to a run, owned exclusively by it.
type Query struct {
	ID       string `json:"id"`
	RunID    string `json:"runId"`
	Provider string `json:"provider"`

	Spec QuerySpec `json:"spec"`

	Status       QueryStatus `json:"status"`
	RecordsFound int         `json:"recordsFound"`
	Error        string      `json:"error,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
