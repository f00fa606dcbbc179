package objects

// DetectorRule is a tenant-defined detector: an expr program evaluated
// against each evidence item. A matching rule emits a detector result with
// the rule's category and severity.
type DetectorRule struct {
	Name       string       `json:"name"`
	Category   DataCategory `json:"category"`
	Severity   Severity     `json:"severity"`
	Expression string       `json:"expression"`

	// Special forces the special-category flag for custom categories
	// outside the built-in special set.
	Special bool `json:"special,omitempty"`
}

// TenantSettings holds the per-tenant engine configuration consulted by
// the legal gate and the detector pipeline.
type TenantSettings struct {
	TenantID string `json:"tenantId"`

	// RequireTwoPersonExport demands distinct step1/step2 approvals before
	// any gated export proceeds.
	RequireTwoPersonExport bool `json:"requireTwoPersonExport"`

	DetectorRules []DetectorRule `json:"detectorRules,omitempty"`
}
