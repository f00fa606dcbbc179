package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/audit"
	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/metrics"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/store"
)

// SpecialCategoryWarningText is stamped verbatim into every evidence index
// generated for a run that contains special category data.
const SpecialCategoryWarningText = "This export contains special category personal data (GDPR Art. 9). " +
	"Handle under the approved legal basis only and restrict further distribution."

type GateServiceParams struct {
	fx.In

	Runs      store.RunStore
	Evidence  store.EvidenceStore
	Results   store.DetectorResultStore
	Findings  store.FindingStore
	Artifacts store.ArtifactStore
	Settings  store.SettingsStore
	Checker   *authz.Checker
	Audit     audit.Sink
}

// GateService owns the legal gate and export lifecycle: Art. 9 review,
// two-person export approvals, and export generation. The gate and the
// approvals are tracked independently; an approved gate does not imply
// approved export steps and vice versa.
type GateService struct {
	runs      store.RunStore
	evidence  store.EvidenceStore
	results   store.DetectorResultStore
	findings  store.FindingStore
	artifacts store.ArtifactStore
	settings  store.SettingsStore

	checker *authz.Checker
	audit   audit.Sink
}

// NewGateService builds the gate service.
func NewGateService(params GateServiceParams) *GateService {
	return &GateService{
		runs:      params.Runs,
		evidence:  params.Evidence,
		results:   params.Results,
		findings:  params.Findings,
		artifacts: params.Artifacts,
		settings:  params.Settings,
		checker:   params.Checker,
		audit:     params.Audit,
	}
}

// CheckLegalGate evaluates the export gate for a run without mutating
// anything. The decision reflects what an export attempt would hit right
// now, including the tenant's two-person requirement.
func (s *GateService) CheckLegalGate(ctx context.Context, access authz.AccessContext, runID string) (*objects.GateDecision, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionExportRead); err != nil {
		return nil, err
	}

	run, err := s.getCaseRun(access, runID)
	if err != nil {
		return nil, err
	}

	decision := s.decide(run, s.settings.Get(run.TenantID))

	return &decision, nil
}

// getCaseRun fetches a run and hides runs from other cases.
func (s *GateService) getCaseRun(access authz.AccessContext, runID string) (*objects.Run, error) {
	run, err := s.runs.GetRun(access.Actor.TenantID, runID)
	if err != nil {
		return nil, err
	}

	if run.CaseID != access.CaseID {
		return nil, fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
	}

	return run, nil
}

// decide is the pure gate evaluation. Art. 9 codes take priority over the
// two-person code when both conditions hold.
func (s *GateService) decide(run *objects.Run, settings objects.TenantSettings) objects.GateDecision {
	if run.ContainsSpecialCategory {
		switch run.LegalApprovalStatus {
		case objects.LegalApprovalApproved:
			// Fall through to the two-person check.
		case objects.LegalApprovalRejected:
			return objects.GateDecision{
				Code:   objects.GateCodeArt9Rejected,
				Reason: "legal review rejected the export of special category data",
			}
		default:
			return objects.GateDecision{
				Code:   objects.GateCodeArt9ApprovalRequired,
				Reason: "special category data requires legal approval before export",
			}
		}
	}

	if settings.RequireTwoPersonExport && !twoPersonSatisfied(run.ExportApprovals) {
		return objects.GateDecision{
			Code:   objects.GateCodeTwoPersonRequired,
			Reason: "export requires two distinct approvers",
		}
	}

	return objects.GateDecision{Allowed: true}
}

func twoPersonSatisfied(a objects.ExportApprovals) bool {
	return a.Step1By != "" && a.Step2By != "" && a.Step1By != a.Step2By
}

// RequestLegalReview moves the gate from REQUIRED to PENDING. Requesting a
// review that is already pending is a no-op.
func (s *GateService) RequestLegalReview(ctx context.Context, access authz.AccessContext, runID string) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunCreate); err != nil {
		return nil, err
	}

	run, err := s.runs.UpdateRun(access.Actor.TenantID, runID, func(run *objects.Run) error {
		if run.CaseID != access.CaseID {
			return fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
		}

		switch run.LegalApprovalStatus {
		case objects.LegalApprovalRequired:
			run.LegalApprovalStatus = objects.LegalApprovalPending
			return nil
		case objects.LegalApprovalPending:
			return nil
		default:
			return fmt.Errorf("%w: legal review cannot be requested in status %s",
				ErrInvalidTransition, run.LegalApprovalStatus)
		}
	})
	if err != nil {
		return nil, err
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionLegalReviewRequested,
		EntityType:  "run",
		EntityID:    run.ID,
	})

	return run, nil
}

// ApproveLegalGate records the Art. 9 approval. Repeated approval by any
// authorized actor is a no-op; approving a rejected gate is invalid.
func (s *GateService) ApproveLegalGate(ctx context.Context, access authz.AccessContext, runID string) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionLegalApprove); err != nil {
		return nil, err
	}

	run, err := s.runs.UpdateRun(access.Actor.TenantID, runID, func(run *objects.Run) error {
		if run.CaseID != access.CaseID {
			return fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
		}

		switch run.LegalApprovalStatus {
		case objects.LegalApprovalRequired, objects.LegalApprovalPending:
			now := time.Now().UTC()
			run.LegalApprovalStatus = objects.LegalApprovalApproved
			run.LegalApprovedBy = access.Actor.UserID
			run.LegalDecidedAt = &now
			return nil
		case objects.LegalApprovalApproved:
			return nil
		default:
			return fmt.Errorf("%w: legal gate cannot be approved in status %s",
				ErrInvalidTransition, run.LegalApprovalStatus)
		}
	})
	if err != nil {
		return nil, err
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionLegalApproved,
		EntityType:  "run",
		EntityID:    run.ID,
	})

	return run, nil
}

// RejectLegalGate records the Art. 9 rejection with a mandatory reason.
func (s *GateService) RejectLegalGate(ctx context.Context, access authz.AccessContext, runID, reason string) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionLegalApprove); err != nil {
		return nil, err
	}

	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	run, err := s.runs.UpdateRun(access.Actor.TenantID, runID, func(run *objects.Run) error {
		if run.CaseID != access.CaseID {
			return fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
		}

		switch run.LegalApprovalStatus {
		case objects.LegalApprovalRequired, objects.LegalApprovalPending:
			now := time.Now().UTC()
			run.LegalApprovalStatus = objects.LegalApprovalRejected
			run.LegalApprovedBy = access.Actor.UserID
			run.LegalDecidedAt = &now
			run.LegalRejectionReason = reason
			return nil
		case objects.LegalApprovalRejected:
			return nil
		default:
			return fmt.Errorf("%w: legal gate cannot be rejected in status %s",
				ErrInvalidTransition, run.LegalApprovalStatus)
		}
	})
	if err != nil {
		return nil, err
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionLegalRejected,
		EntityType:  "run",
		EntityID:    run.ID,
		Details:     map[string]string{"reason": reason},
	})

	return run, nil
}

// ApproveExportStep records one of the two export approvals. Step 1 is open
// to case management tiers, step 2 to the privacy office. The second
// approver must differ from the first.
func (s *GateService) ApproveExportStep(ctx context.Context, access authz.AccessContext, runID string, step int) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionExportCreate); err != nil {
		return nil, err
	}

	switch step {
	case 1:
		if !authz.CanApproveExportStep1(access.Actor.Role) {
			return nil, fmt.Errorf("%w: role %s cannot give the first export approval",
				authz.ErrPermissionDenied, access.Actor.Role)
		}
	case 2:
		if !authz.CanApproveExportStep2(access.Actor.Role) {
			return nil, fmt.Errorf("%w: role %s cannot give the second export approval",
				authz.ErrPermissionDenied, access.Actor.Role)
		}
	default:
		return nil, fmt.Errorf("%w: export approval step must be 1 or 2", ErrValidation)
	}

	run, err := s.runs.UpdateRun(access.Actor.TenantID, runID, func(run *objects.Run) error {
		if run.CaseID != access.CaseID {
			return fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
		}

		now := time.Now().UTC()

		switch step {
		case 1:
			if run.ExportApprovals.Step1By == access.Actor.UserID {
				return nil
			}
			if run.ExportApprovals.Step1By != "" {
				return fmt.Errorf("%w: step 1 already approved by %s",
					ErrInvalidTransition, run.ExportApprovals.Step1By)
			}
			run.ExportApprovals.Step1By = access.Actor.UserID
			run.ExportApprovals.Step1At = &now
		case 2:
			if run.ExportApprovals.Step2By == access.Actor.UserID {
				return nil
			}
			if run.ExportApprovals.Step2By != "" {
				return fmt.Errorf("%w: step 2 already approved by %s",
					ErrInvalidTransition, run.ExportApprovals.Step2By)
			}
			if run.ExportApprovals.Step1By == "" {
				return fmt.Errorf("%w: step 2 requires a prior step 1 approval", ErrInvalidTransition)
			}
			if run.ExportApprovals.Step1By == access.Actor.UserID {
				return fmt.Errorf("%w: the two export approvals must come from distinct users",
					ErrInvalidTransition)
			}
			run.ExportApprovals.Step2By = access.Actor.UserID
			run.ExportApprovals.Step2At = &now
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionExportStepApproved,
		EntityType:  "run",
		EntityID:    run.ID,
		Details:     map[string]string{"step": fmt.Sprintf("%d", step)},
	})

	return run, nil
}

// GenerateExport attempts to produce the evidence index for a completed
// run. A blocked gate still records an artifact, with no payload, so the
// attempt itself is auditable.
func (s *GateService) GenerateExport(ctx context.Context, access authz.AccessContext, runID string) (*objects.ExportArtifact, *objects.EvidenceIndexData, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionExportCreate); err != nil {
		return nil, nil, err
	}

	run, err := s.getCaseRun(access, runID)
	if err != nil {
		return nil, nil, err
	}

	if run.Status != objects.RunStatusCompleted {
		return nil, nil, fmt.Errorf("%w: only completed runs can be exported, run is %s",
			ErrInvalidTransition, run.Status)
	}

	decision := s.decide(run, s.settings.Get(run.TenantID))

	artifact := objects.ExportArtifact{
		ID:        "exp-" + uuid.NewString(),
		RunID:     run.ID,
		TenantID:  run.TenantID,
		Type:      "evidence_index",
		CreatedBy: access.Actor.UserID,
		CreatedAt: time.Now().UTC(),
	}

	if !decision.Allowed {
		artifact.Status = objects.ArtifactStatusBlocked
		artifact.LegalGateStatus = objects.GateStatusBlocked
		artifact.GateCode = decision.Code

		if err := s.artifacts.Append(artifact); err != nil {
			return nil, nil, err
		}

		audit.Best(ctx, s.audit, audit.Event{
			TenantID:    run.TenantID,
			ActorUserID: access.Actor.UserID,
			Action:      audit.ActionExportBlocked,
			EntityType:  "export",
			EntityID:    artifact.ID,
			Details: map[string]string{
				"run_id":    run.ID,
				"gate_code": string(decision.Code),
			},
		})

		metrics.ExportOutcome(ctx, run.TenantID, false)

		return &artifact, nil, nil
	}

	data, err := s.buildEvidenceIndex(run)
	if err != nil {
		return nil, nil, err
	}

	artifact.Status = objects.ArtifactStatusCompleted
	artifact.LegalGateStatus = objects.GateStatusAllowed

	if err := s.artifacts.Append(artifact); err != nil {
		return nil, nil, err
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionExportGenerated,
		EntityType:  "export",
		EntityID:    artifact.ID,
		Details:     map[string]string{"run_id": run.ID},
	})

	metrics.ExportOutcome(ctx, run.TenantID, true)

	return &artifact, data, nil
}

// buildEvidenceIndex assembles the export document. Evidence content never
// crosses into the index; only descriptors do.
func (s *GateService) buildEvidenceIndex(run *objects.Run) (*objects.EvidenceIndexData, error) {
	items, err := s.evidence.ListByRun(run.ID)
	if err != nil {
		return nil, err
	}

	records := make([]objects.EvidenceRecord, 0, len(items))
	for _, item := range items {
		records = append(records, objects.EvidenceRecord{
			ID:               item.ID,
			Provider:         item.Provider,
			Location:         item.Location,
			Title:            item.Title,
			ContentMode:      item.ContentMode,
			SensitivityScore: item.SensitivityScore,
			CollectedAt:      item.CollectedAt,
		})
	}

	findings, err := s.findings.ListByRun(run.ID)
	if err != nil {
		return nil, err
	}

	results, err := s.results.ListByRun(run.ID)
	if err != nil {
		return nil, err
	}

	summary := map[string]int{}
	for _, result := range results {
		summary[result.Detector]++
	}

	data := &objects.EvidenceIndexData{
		RunID:           run.ID,
		CaseID:          run.CaseID,
		CaseNumber:      run.CaseNumber,
		Subject:         run.Subject,
		GeneratedAt:     time.Now().UTC(),
		Evidence:        records,
		Findings:        findings,
		DetectorSummary: summary,
	}

	if run.ContainsSpecialCategory {
		data.SpecialCategoryWarning = SpecialCategoryWarningText
	}

	return data, nil
}

// ListExports returns every export attempt for a run, blocked ones
// included.
func (s *GateService) ListExports(ctx context.Context, access authz.AccessContext, runID string) ([]objects.ExportArtifact, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionExportRead); err != nil {
		return nil, err
	}

	if _, err := s.getCaseRun(access, runID); err != nil {
		return nil, err
	}

	return s.artifacts.ListByRun(runID)
}
