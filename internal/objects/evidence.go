package objects

import (
	"encoding/json"
	"time"
)

// ContentMode describes how an evidence item's content was handled.
type ContentMode string

const (
	ContentModeMetadataOnly ContentMode = "METADATA_ONLY"
	ContentModeFullContent  ContentMode = "FULL_CONTENT"
)

// EvidenceItem is one unit returned by a connector. Immutable once stored.
type EvidenceItem struct {
	ID       string `json:"id"`
	RunID    string `json:"runId"`
	QueryID  string `json:"queryId"`
	Provider string `json:"provider"`

	Location string `json:"location"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`

	ContentMode      ContentMode     `json:"contentMode"`
	SensitivityScore *float64        `json:"sensitivityScore,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`

	CollectedAt time.Time `json:"collectedAt"`
}
