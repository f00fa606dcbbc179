package objects

// DataCategory classifies discovered data. Tenant detector rules may emit
// custom categories beyond the built-in set.
type DataCategory string

const (
	CategoryContact   DataCategory = "CONTACT"
	CategoryFinancial DataCategory = "FINANCIAL"
	CategoryIdentity  DataCategory = "IDENTITY"
	CategoryHealth    DataCategory = "HEALTH"
	CategoryReligion  DataCategory = "RELIGION"
	CategoryUnion     DataCategory = "UNION_MEMBERSHIP"
	CategoryPolitical DataCategory = "POLITICAL_OPINION"
)

// IsSpecial reports whether the category is statutorily special under
// Art. 9 (heightened legal protection).
func (c DataCategory) IsSpecial() bool {
	switch c {
	case CategoryHealth, CategoryReligion, CategoryUnion, CategoryPolitical:
		return true
	default:
		return false
	}
}

// Severity rates a finding. Ordering: CRITICAL > WARNING > INFO.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the severity ordering used when merging detections.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}

	return a
}

// DetectedElement is one matched element inside an evidence item. Values
// are masked before they leave the detector.
type DetectedElement struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoryConfidence pairs a category with the detector's confidence in it.
type CategoryConfidence struct {
	Category   DataCategory `json:"category"`
	Confidence float64      `json:"confidence"`
}

// DetectorResult is one detector's output against one evidence item.
type DetectorResult struct {
	Detector   string               `json:"detector"`
	EvidenceID string               `json:"evidenceId"`
	Elements   []DetectedElement    `json:"elements"`
	Categories []CategoryConfidence `json:"categories"`

	SpecialCategorySuspected bool `json:"specialCategorySuspected"`
	ThirdPartySuspected      bool `json:"thirdPartySuspected"`

	Severity Severity `json:"severity"`
}

// Finding is the aggregated, human-facing unit: one data category per run,
// derived from one or more detector results.
type Finding struct {
	ID       string       `json:"id"`
	RunID    string       `json:"runId"`
	Category DataCategory `json:"category"`

	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`

	EvidenceIDs []string `json:"evidenceIds"`

	ContainsSpecialCategory         bool `json:"containsSpecialCategory"`
	ContainsThirdPartyDataSuspected bool `json:"containsThirdPartyDataSuspected"`
	RequiresLegalReview             bool `json:"requiresLegalReview"`
}
