package objects

import "time"

// RunStatus is the lifecycle state of a discovery run.
type RunStatus string

const (
	RunStatusDraft     RunStatus = "DRAFT"
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCanceled  RunStatus = "CANCELED"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// LegalApprovalStatus tracks the Art. 9 gate decision on a run.
type LegalApprovalStatus string

const (
	// LegalApprovalNotRequired means no special-category data was found.
	LegalApprovalNotRequired LegalApprovalStatus = "NOT_REQUIRED"
	// LegalApprovalRequired means special-category data was found and no
	// review has been requested yet.
	LegalApprovalRequired LegalApprovalStatus = "REQUIRED"
	// LegalApprovalPending means a review was requested and is undecided.
	LegalApprovalPending  LegalApprovalStatus = "PENDING"
	LegalApprovalApproved LegalApprovalStatus = "APPROVED"
	LegalApprovalRejected LegalApprovalStatus = "REJECTED"
)

// ExportApprovals records the two-person export approvals, tracked
// independently of the Art. 9 gate.
type ExportApprovals struct {
	Step1By string     `json:"step1By,omitempty"`
	Step1At *time.Time `json:"step1At,omitempty"`
	Step2By string     `json:"step2By,omitempty"`
	Step2At *time.Time `json:"step2At,omitempty"`
}

// Run identifies one discovery operation against a data subject's
// footprint. Runs are never deleted, only superseded.
type Run struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenantId"`
	CaseID        string `json:"caseId"`
	CaseNumber    string `json:"caseNumber,omitempty"`
	CreatedBy     string `json:"createdBy"`
	Justification string `json:"justification"`
	Subject       string `json:"subject"`

	Status RunStatus `json:"status"`

	ContainsSpecialCategory bool                `json:"containsSpecialCategory"`
	LegalApprovalStatus     LegalApprovalStatus `json:"legalApprovalStatus"`
	LegalApprovedBy         string              `json:"legalApprovedBy,omitempty"`
	LegalDecidedAt          *time.Time          `json:"legalDecidedAt,omitempty"`
	LegalRejectionReason    string              `json:"legalRejectionReason,omitempty"`

	ExportApprovals ExportApprovals `json:"exportApprovals"`

	TotalFindings   int    `json:"totalFindings"`
	TotalEvidence   int    `json:"totalEvidence"`
	DegradedSummary string `json:"degradedSummary,omitempty"`
	ErrorDetails    string `json:"errorDetails,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
