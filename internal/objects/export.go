package objects

import "time"

// ArtifactStatus is the outcome of one export attempt.
type ArtifactStatus string

const (
	ArtifactStatusBlocked   ArtifactStatus = "BLOCKED"
	ArtifactStatusCompleted ArtifactStatus = "COMPLETED"
)

// GateStatus is the legal gate outcome recorded on an artifact.
type GateStatus string

const (
	GateStatusBlocked GateStatus = "BLOCKED"
	GateStatusAllowed GateStatus = "ALLOWED"
)

// GateCode identifies why a gate blocked. Art. 9 codes take priority over
// the two-person export code when several conditions hold at once.
type GateCode string

const (
	GateCodeArt9ApprovalRequired GateCode = "ART9_APPROVAL_REQUIRED"
	GateCodeArt9Rejected         GateCode = "ART9_REJECTED"
	GateCodeTwoPersonRequired    GateCode = "TWO_PERSON_APPROVAL_REQUIRED"
)

// GateDecision is the first-class result of a legal gate check. A blocked
// decision is not an error; it is always paired with a BLOCKED artifact
// when produced by an export attempt.
type GateDecision struct {
	Allowed bool     `json:"allowed"`
	Code    GateCode `json:"code,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// ExportArtifact records one export attempt for a run, including denied
// attempts, to preserve the audit trail.
type ExportArtifact struct {
	ID       string `json:"id"`
	RunID    string `json:"runId"`
	TenantID string `json:"tenantId"`

	Type            string         `json:"type"`
	Status          ArtifactStatus `json:"status"`
	LegalGateStatus GateStatus     `json:"legalGateStatus"`
	GateCode        GateCode       `json:"gateCode,omitempty"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// EvidenceRecord is the per-evidence-item entry of an evidence index.
// Content never appears here; only descriptors.
type EvidenceRecord struct {
	ID               string       `json:"id"`
	Provider         string       `json:"provider"`
	Location         string       `json:"location"`
	Title            string       `json:"title"`
	ContentMode      ContentMode  `json:"contentMode"`
	SensitivityScore *float64     `json:"sensitivityScore,omitempty"`
	CollectedAt      time.Time    `json:"collectedAt"`
}

// EvidenceIndexData is the structured export document. Rendering to
// PDF/CSV/HTML is an external collaborator's responsibility.
type EvidenceIndexData struct {
	RunID      string    `json:"runId"`
	CaseID     string    `json:"caseId"`
	CaseNumber string    `json:"caseNumber,omitempty"`
	Subject    string    `json:"subject"`
	GeneratedAt time.Time `json:"generatedAt"`

	Evidence []EvidenceRecord `json:"evidence"`
	Findings []Finding        `json:"findings"`

	// DetectorSummary counts detector hits per detector type.
	DetectorSummary map[string]int `json:"detectorSummary"`

	// SpecialCategoryWarning is non-empty iff the run contains special
	// category data; downstream renderers must display it verbatim.
	SpecialCategoryWarning string `json:"specialCategoryWarning,omitempty"`
}
