package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/zhenzou/executors"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/casewarden/discoveryhub/internal/audit"
	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/detector"
	"github.com/casewarden/discoveryhub/internal/log"
	"github.com/casewarden/discoveryhub/internal/metrics"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/store"
	"github.com/casewarden/discoveryhub/internal/tracing"
)

// EngineConfig bounds the run engine.
type EngineConfig struct {
	MaxRunsPerTenant   int `conf:"max_runs_per_tenant" yaml:"max_runs_per_tenant" json:"max_runs_per_tenant"`
	MaxRunsPerUser     int `conf:"max_runs_per_user" yaml:"max_runs_per_user" json:"max_runs_per_user"`
	MaxParallelQueries int `conf:"max_parallel_queries" yaml:"max_parallel_queries" json:"max_parallel_queries"`
	// ConnectorRetries is the bounded retry count applied only to
	// connector failures at the query dispatch layer.
	ConnectorRetries int `conf:"connector_retries" yaml:"connector_retries" json:"connector_retries"`
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxRunsPerTenant == 0 {
		c.MaxRunsPerTenant = 8
	}

	if c.MaxRunsPerUser == 0 {
		c.MaxRunsPerUser = 2
	}

	if c.MaxParallelQueries == 0 {
		c.MaxParallelQueries = 4
	}

	if c.ConnectorRetries == 0 {
		c.ConnectorRetries = 2
	}

	return c
}

// ProviderConfig carries the connector settings and secret reference for
// one provider.
type ProviderConfig struct {
	Config    connector.Config `conf:"config" yaml:"config" json:"config"`
	SecretRef string           `conf:"secret_ref" yaml:"secret_ref" json:"secret_ref"`
}

// QueryInput is one requested dispatch unit.
type QueryInput struct {
	Provider    string                `json:"provider"`
	Intent      string                `json:"intent,omitempty"`
	Mode        objects.ExecutionMode `json:"mode"`
	Constraints map[string]string     `json:"constraints,omitempty"`
}

// CreateRunInput is the payload for creating a discovery run.
type CreateRunInput struct {
	CaseID        string       `json:"caseId"`
	CaseNumber    string       `json:"caseNumber,omitempty"`
	Subject       string       `json:"subject"`
	Justification string       `json:"justification"`
	Queries       []QueryInput `json:"queries"`
}

type RunServiceParams struct {
	fx.In

	Runs      store.RunStore
	Evidence  store.EvidenceStore
	Results   store.DetectorResultStore
	Findings  store.FindingStore
	Settings  store.SettingsStore
	Checker   *authz.Checker
	Registry  *connector.Registry
	Detector  *detector.Engine
	Audit     audit.Sink
	Executor  executors.ScheduledExecutor
	Config    EngineConfig
	Providers map[string]ProviderConfig
}

// RunService owns the run state machine: accepting justified runs,
// dispatching queries to connectors, and finalizing status.
type RunService struct {
	runs     store.RunStore
	evidence store.EvidenceStore
	results  store.DetectorResultStore
	findings store.FindingStore
	settings store.SettingsStore

	checker   *authz.Checker
	registry  *connector.Registry
	detector  *detector.Engine
	audit     audit.Sink
	executor  executors.ScheduledExecutor
	config    EngineConfig
	providers map[string]ProviderConfig
}

// NewRunService builds the run service.
func NewRunService(params RunServiceParams) *RunService {
	return &RunService{
		runs:      params.Runs,
		evidence:  params.Evidence,
		results:   params.Results,
		findings:  params.Findings,
		settings:  params.Settings,
		checker:   params.Checker,
		registry:  params.Registry,
		detector:  params.Detector,
		audit:     params.Audit,
		executor:  params.Executor,
		config:    params.Config.withDefaults(),
		providers: params.Providers,
	}
}

// CreateRun validates the request and creates a DRAFT run with PENDING
// queries. Nothing is dispatched yet.
func (s *RunService) CreateRun(ctx context.Context, access authz.AccessContext, input CreateRunInput) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunCreate); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Justification) == "" {
		return nil, fmt.Errorf("%w: justification is required", ErrValidation)
	}

	if strings.TrimSpace(input.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}

	if len(input.Queries) == 0 {
		return nil, fmt.Errorf("%w: at least one query is required", ErrValidation)
	}

	for _, q := range input.Queries {
		if q.Mode != objects.ExecutionModeMetadataOnly && q.Mode != objects.ExecutionModeContentScan {
			return nil, fmt.Errorf("%w: unknown execution mode %q", ErrValidation, q.Mode)
		}
	}

	tenantActive, userActive := s.runs.CountActive(access.Actor.TenantID, access.Actor.UserID)
	if tenantActive >= s.config.MaxRunsPerTenant {
		return nil, fmt.Errorf("%w: tenant has %d active runs", ErrConcurrencyLimitExceeded, tenantActive)
	}

	if userActive >= s.config.MaxRunsPerUser {
		return nil, fmt.Errorf("%w: user has %d active runs", ErrConcurrencyLimitExceeded, userActive)
	}

	now := time.Now().UTC()
	run := &objects.Run{
		ID:                  fmt.Sprintf("run-%s", uuid.New().String()),
		TenantID:            access.Actor.TenantID,
		CaseID:              access.CaseID,
		CaseNumber:          input.CaseNumber,
		CreatedBy:           access.Actor.UserID,
		Justification:       input.Justification,
		Subject:             input.Subject,
		Status:              objects.RunStatusDraft,
		LegalApprovalStatus: objects.LegalApprovalNotRequired,
		CreatedAt:           now,
	}

	if err := s.runs.CreateRun(run); err != nil {
		return nil, err
	}

	for _, q := range input.Queries {
		query := &objects.Query{
			ID:       fmt.Sprintf("qry-%s", uuid.New().String()),
			RunID:    run.ID,
			Provider: q.Provider,
			Spec: objects.QuerySpec{
				Subject:     input.Subject,
				Intent:      q.Intent,
				Mode:        q.Mode,
				Constraints: q.Constraints,
			},
			Status: objects.QueryStatusPending,
		}

		if err := s.runs.AddQuery(query); err != nil {
			return nil, err
		}
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionRunCreated,
		EntityType:  "run",
		EntityID:    run.ID,
		Details:     map[string]string{"case_id": run.CaseID, "queries": fmt.Sprintf("%d", len(input.Queries))},
	})

	return run, nil
}

// SubmitRun moves a DRAFT run to QUEUED and schedules its execution.
func (s *RunService) SubmitRun(ctx context.Context, access authz.AccessContext, runID string) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunCreate); err != nil {
		return nil, err
	}

	run, err := s.runs.UpdateRun(access.Actor.TenantID, runID, func(run *objects.Run) error {
		if run.CaseID != access.CaseID {
			return fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
		}

		if run.Status != objects.RunStatusDraft {
			return fmt.Errorf("%w: cannot submit run in status %s", ErrInvalidTransition, run.Status)
		}

		run.Status = objects.RunStatusQueued

		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionRunSubmitted,
		EntityType:  "run",
		EntityID:    run.ID,
	})

	metrics.RunStarted(ctx, run.TenantID)

	tenantID := run.TenantID
	err = s.executor.ExecuteFunc(func(execCtx context.Context) {
		s.execute(execCtx, tenantID, runID)
	})
	if err != nil {
		// The pool rejected the task; the run must not be stuck QUEUED.
		_, failErr := s.runs.UpdateRun(tenantID, runID, func(run *objects.Run) error {
			run.Status = objects.RunStatusFailed
			run.ErrorDetails = fmt.Sprintf("executor rejected run: %v", err)

			return nil
		})
		if failErr != nil {
			log.Error(ctx, "failed to mark rejected run failed", log.Cause(failErr))
		}

		return nil, fmt.Errorf("%w: engine is saturated", ErrConcurrencyLimitExceeded)
	}

	return run, nil
}

// CancelRun cancels a non-terminal run. In-flight queries are marked
// SKIPPED cooperatively when the dispatch loop next checks status.
func (s *RunService) CancelRun(ctx context.Context, access authz.AccessContext, runID string) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunCancel); err != nil {
		return nil, err
	}

	run, err := s.runs.UpdateRun(access.Actor.TenantID, runID, func(run *objects.Run) error {
		if run.CaseID != access.CaseID {
			return fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
		}

		if run.Status.Terminal() {
			return fmt.Errorf("%w: run is already %s", ErrInvalidTransition, run.Status)
		}

		run.Status = objects.RunStatusCanceled
		run.CompletedAt = lo.ToPtr(time.Now().UTC())

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Queries not yet dispatched will never run.
	queries, listErr := s.runs.ListQueries(runID)
	if listErr == nil {
		for _, query := range queries {
			if query.Status != objects.QueryStatusPending {
				continue
			}

			_, _ = s.runs.UpdateQuery(runID, query.ID, func(q *objects.Query) error {
				if q.Status == objects.QueryStatusPending {
					q.Status = objects.QueryStatusSkipped
					q.Error = "run canceled"
				}

				return nil
			})
		}
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    run.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionRunCanceled,
		EntityType:  "run",
		EntityID:    run.ID,
	})

	metrics.RunFinished(ctx, run.TenantID, string(objects.RunStatusCanceled))

	return run, nil
}

// getCaseRun fetches a run and hides runs from other cases. A run id from
// another case reads as not found, not as forbidden.
func (s *RunService) getCaseRun(access authz.AccessContext, runID string) (*objects.Run, error) {
	run, err := s.runs.GetRun(access.Actor.TenantID, runID)
	if err != nil {
		return nil, err
	}

	if run.CaseID != access.CaseID {
		return nil, fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
	}

	return run, nil
}

// GetRun returns one run.
func (s *RunService) GetRun(ctx context.Context, access authz.AccessContext, runID string) (*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunRead); err != nil {
		return nil, err
	}

	return s.getCaseRun(access, runID)
}

// ListRuns lists the case's runs, oldest first.
func (s *RunService) ListRuns(ctx context.Context, access authz.AccessContext) ([]*objects.Run, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunRead); err != nil {
		return nil, err
	}

	return s.runs.ListRuns(access.Actor.TenantID, access.CaseID)
}

// ListQueries returns the run's query list, including failed and skipped
// dispatches.
func (s *RunService) ListQueries(ctx context.Context, access authz.AccessContext, runID string) ([]*objects.Query, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunRead); err != nil {
		return nil, err
	}

	if _, err := s.getCaseRun(access, runID); err != nil {
		return nil, err
	}

	return s.runs.ListQueries(runID)
}

// ListFindings returns the run's aggregated findings.
func (s *RunService) ListFindings(ctx context.Context, access authz.AccessContext, runID string) ([]objects.Finding, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionRunRead); err != nil {
		return nil, err
	}

	if _, err := s.getCaseRun(access, runID); err != nil {
		return nil, err
	}

	return s.findings.ListByRun(runID)
}

// execute drives one run from QUEUED to a terminal status. Any internal
// failure leaves the run FAILED, never stuck RUNNING.
func (s *RunService) execute(ctx context.Context, tenantID, runID string) {
	ctx = tracing.WithTraceID(ctx, tracing.GenerateTraceID())

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "run execution panicked",
				log.String("run_id", runID),
				log.Any("panic", r),
			)
			s.failRun(ctx, tenantID, runID, fmt.Sprintf("engine panic: %v", r))
		}
	}()

	run, err := s.runs.UpdateRun(tenantID, runID, func(run *objects.Run) error {
		if run.Status != objects.RunStatusQueued {
			return fmt.Errorf("%w: cannot start run in status %s", ErrInvalidTransition, run.Status)
		}

		run.Status = objects.RunStatusRunning
		run.StartedAt = lo.ToPtr(time.Now().UTC())

		return nil
	})
	if err != nil {
		// Run was canceled between submit and pickup.
		log.Info(ctx, "run not started", log.String("run_id", runID), log.Cause(err))
		return
	}

	log.Info(ctx, "run started",
		log.String("run_id", runID),
		log.String("tenant_id", tenantID),
		log.String("case_id", run.CaseID),
	)

	queries, err := s.runs.ListQueries(runID)
	if err != nil {
		s.failRun(ctx, tenantID, runID, fmt.Sprintf("failed to load queries: %v", err))
		return
	}

	rules := s.settings.Get(tenantID).DetectorRules

	var degraded *multierror.Error

	degradedCh := make(chan error, len(queries))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.MaxParallelQueries)

	for _, query := range queries {
		group.Go(func() error {
			if qErr := s.dispatchQuery(groupCtx, tenantID, run, query, rules); qErr != nil {
				degradedCh <- fmt.Errorf("query %s (%s): %w", query.ID, query.Provider, qErr)
			}

			// Query failures degrade the run; they never fail it.
			return nil
		})
	}

	// Aggregation must not begin until every query is terminal.
	_ = group.Wait()
	close(degradedCh)

	for qErr := range degradedCh {
		degraded = multierror.Append(degraded, qErr)
	}

	current, err := s.runs.GetRun(tenantID, runID)
	if err == nil && current.Status == objects.RunStatusCanceled {
		log.Info(ctx, "run canceled during dispatch", log.String("run_id", runID))
		return
	}

	s.finalize(ctx, tenantID, runID, degraded)
}

// dispatchQuery executes one query against its connector with bounded
// retries. It always leaves the query in a terminal status.
func (s *RunService) dispatchQuery(ctx context.Context, tenantID string, run *objects.Run, query *objects.Query, rules []objects.DetectorRule) error {
	// Cooperative cancellation: consult run status before dispatching.
	current, err := s.runs.GetRun(tenantID, run.ID)
	if err == nil && current.Status == objects.RunStatusCanceled {
		_, _ = s.runs.UpdateQuery(run.ID, query.ID, func(q *objects.Query) error {
			if !q.Status.Terminal() {
				q.Status = objects.QueryStatusSkipped
				q.Error = "run canceled"
			}

			return nil
		})

		return nil
	}

	conn, err := s.registry.Get(query.Provider)
	if err != nil {
		_, _ = s.runs.UpdateQuery(run.ID, query.ID, func(q *objects.Query) error {
			q.Status = objects.QueryStatusSkipped
			q.Error = err.Error()
			q.CompletedAt = lo.ToPtr(time.Now().UTC())

			return nil
		})

		return err
	}

	_, _ = s.runs.UpdateQuery(run.ID, query.ID, func(q *objects.Query) error {
		q.Status = objects.QueryStatusRunning
		q.StartedAt = lo.ToPtr(time.Now().UTC())

		return nil
	})

	provider := s.providers[query.Provider]

	var (
		result     connector.CollectResult
		collectErr error
	)

	for attempt := 0; attempt <= s.config.ConnectorRetries; attempt++ {
		if attempt > 0 {
			log.Warn(ctx, "retrying connector collect",
				log.String("query_id", query.ID),
				log.String("provider", query.Provider),
				log.Int("attempt", attempt),
				log.Cause(collectErr),
			)
		}

		if waitErr := s.registry.Wait(ctx, query.Provider); waitErr != nil {
			collectErr = waitErr
			break
		}

		result, collectErr = conn.CollectData(ctx, provider.Config, provider.SecretRef, query.Spec)
		if collectErr == nil {
			break
		}
	}

	if collectErr != nil {
		return s.failQuery(run.ID, query.ID, fmt.Errorf("%w: %w", connector.ErrConnectorFailure, collectErr))
	}

	recordsFound := 0

	for _, item := range result.EvidenceItems {
		item.ID = fmt.Sprintf("ev-%s", uuid.New().String())
		item.RunID = run.ID
		item.QueryID = query.ID

		if item.CollectedAt.IsZero() {
			item.CollectedAt = time.Now().UTC()
		}

		if appendErr := s.evidence.Append(item); appendErr != nil {
			return s.failQuery(run.ID, query.ID, fmt.Errorf("store evidence: %w", appendErr))
		}

		recordsFound++

		detections := s.detector.DetectEvidence(ctx, item, rules)
		if len(detections) > 0 {
			if appendErr := s.results.Append(run.ID, detections...); appendErr != nil {
				return s.failQuery(run.ID, query.ID, fmt.Errorf("store detector results: %w", appendErr))
			}

			for _, d := range detections {
				metrics.DetectorHit(ctx, d.Detector, 1)
			}
		}
	}

	_, _ = s.runs.UpdateQuery(run.ID, query.ID, func(q *objects.Query) error {
		q.Status = objects.QueryStatusCompleted
		q.RecordsFound = recordsFound
		q.CompletedAt = lo.ToPtr(time.Now().UTC())

		return nil
	})

	if log.DebugEnabled(ctx) {
		log.Debug(ctx, "query completed",
			log.String("query_id", query.ID),
			log.String("provider", query.Provider),
			log.Int("records_found", recordsFound),
		)
	}

	return nil
}

// failQuery moves a query to FAILED so it never stays RUNNING after a
// dispatch error, then returns the error for the degraded summary.
func (s *RunService) failQuery(runID, queryID string, cause error) error {
	_, _ = s.runs.UpdateQuery(runID, queryID, func(q *objects.Query) error {
		q.Status = objects.QueryStatusFailed
		q.Error = cause.Error()
		q.CompletedAt = lo.ToPtr(time.Now().UTC())

		return nil
	})

	return cause
}

// finalize aggregates findings and completes the run.
func (s *RunService) finalize(ctx context.Context, tenantID, runID string, degraded *multierror.Error) {
	results, err := s.results.ListByRun(runID)
	if err != nil {
		s.failRun(ctx, tenantID, runID, fmt.Sprintf("failed to load detector results: %v", err))
		return
	}

	findings := detector.Aggregate(runID, results)

	if err := s.findings.ReplaceForRun(runID, findings); err != nil {
		s.failRun(ctx, tenantID, runID, fmt.Sprintf("failed to store findings: %v", err))
		return
	}

	evidence, err := s.evidence.ListByRun(runID)
	if err != nil {
		s.failRun(ctx, tenantID, runID, fmt.Sprintf("failed to load evidence: %v", err))
		return
	}

	special := detector.ContainsSpecialCategory(findings)

	run, err := s.runs.UpdateRun(tenantID, runID, func(run *objects.Run) error {
		if run.Status != objects.RunStatusRunning {
			return fmt.Errorf("%w: cannot complete run in status %s", ErrInvalidTransition, run.Status)
		}

		run.Status = objects.RunStatusCompleted
		run.CompletedAt = lo.ToPtr(time.Now().UTC())
		run.TotalFindings = len(findings)
		run.TotalEvidence = len(evidence)
		run.ContainsSpecialCategory = special

		if special {
			run.LegalApprovalStatus = objects.LegalApprovalRequired
		} else {
			run.LegalApprovalStatus = objects.LegalApprovalNotRequired
		}

		if degraded.ErrorOrNil() != nil {
			run.DegradedSummary = degraded.Error()
		}

		return nil
	})
	if err != nil {
		log.Error(ctx, "failed to complete run", log.String("run_id", runID), log.Cause(err))
		return
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    tenantID,
		ActorUserID: run.CreatedBy,
		Action:      audit.ActionRunCompleted,
		EntityType:  "run",
		EntityID:    runID,
		Details: map[string]string{
			"findings":                  fmt.Sprintf("%d", len(findings)),
			"evidence":                  fmt.Sprintf("%d", len(evidence)),
			"contains_special_category": fmt.Sprintf("%t", special),
			"degraded":                  fmt.Sprintf("%t", run.DegradedSummary != ""),
		},
	})

	metrics.RunFinished(ctx, tenantID, string(objects.RunStatusCompleted))

	log.Info(ctx, "run completed",
		log.String("run_id", runID),
		log.Int("findings", len(findings)),
		log.Int("evidence", len(evidence)),
		log.Bool("contains_special_category", special),
	)
}

// failRun forces the run into FAILED regardless of its current state.
func (s *RunService) failRun(ctx context.Context, tenantID, runID, details string) {
	run, err := s.runs.UpdateRun(tenantID, runID, func(run *objects.Run) error {
		if run.Status.Terminal() {
			return fmt.Errorf("%w: run is already %s", ErrInvalidTransition, run.Status)
		}

		run.Status = objects.RunStatusFailed
		run.ErrorDetails = details
		run.CompletedAt = lo.ToPtr(time.Now().UTC())

		return nil
	})
	if err != nil {
		log.Error(ctx, "failed to mark run failed", log.String("run_id", runID), log.Cause(err))
		return
	}

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    tenantID,
		ActorUserID: run.CreatedBy,
		Action:      audit.ActionRunFailed,
		EntityType:  "run",
		EntityID:    runID,
		Details:     map[string]string{"error": details},
	})

	metrics.RunFinished(ctx, tenantID, string(objects.RunStatusFailed))
}
