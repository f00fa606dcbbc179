// Package audit records every state-changing engine operation. Writes are
// best-effort: a failing sink never blocks the primary operation, but the
// failure is surfaced to operators through the error log.
package audit

import (
	"context"
	"time"

	"github.com/casewarden/discoveryhub/internal/log"
)

// Actions emitted by the engine. Stable strings for aggregation.
const (
	ActionRunCreated           = "run.created"
	ActionRunSubmitted         = "run.submitted"
	ActionRunCompleted         = "run.completed"
	ActionRunFailed            = "run.failed"
	ActionRunCanceled          = "run.canceled"
	ActionLegalReviewRequested = "legal_gate.review_requested"
	ActionLegalApproved        = "legal_gate.approved"
	ActionLegalRejected        = "legal_gate.rejected"
	ActionExportStepApproved   = "export.step_approved"
	ActionExportGenerated      = "export.generated"
	ActionExportBlocked        = "export.blocked"
	ActionTeamMemberAdded      = "team.member_added"
	ActionTeamMemberRemoved    = "team.member_removed"
)

// Event is one audit trail entry.
type Event struct {
	TenantID    string            `json:"tenantId"`
	ActorUserID string            `json:"actorUserId"`
	Action      string            `json:"action"`
	EntityType  string            `json:"entityType"`
	EntityID    string            `json:"entityId"`
	Details     map[string]string `json:"details,omitempty"`
	At          time.Time         `json:"at"`
}

// Sink persists audit events.
type Sink interface {
	Log(ctx context.Context, event Event) error
}

// Best writes the event and logs (rather than propagates) sink failures.
func Best(ctx context.Context, sink Sink, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if err := sink.Log(ctx, event); err != nil {
		log.Error(ctx, "audit sink write failed",
			log.String("action", event.Action),
			log.String("entity_id", event.EntityID),
			log.Cause(err),
		)
	}
}
