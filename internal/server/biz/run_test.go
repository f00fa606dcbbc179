package biz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zhenzou/executors"

	"github.com/casewarden/discoveryhub/internal/audit"
	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/connector/simulator"
	"github.com/casewarden/discoveryhub/internal/detector"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/store"
)

// memorySink records audit events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *memorySink) Log(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return nil
}

func (s *memorySink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := make([]string, 0, len(s.events))
	for _, event := range s.events {
		actions = append(actions, event.Action)
	}

	return actions
}

// failingEvidenceStore rejects every append.
type failingEvidenceStore struct {
	*store.MemoryEvidenceStore
}

func (s *failingEvidenceStore) Append(items ...objects.EvidenceItem) error {
	return errors.New("evidence store offline")
}

type testEnv struct {
	runs      *store.MemoryRunStore
	evidence  *store.MemoryEvidenceStore
	results   *store.MemoryDetectorResultStore
	findings  *store.MemoryFindingStore
	artifacts *store.MemoryArtifactStore
	settings  *store.MemorySettingsStore
	teams     *authz.MemoryTeamStore
	sink      *memorySink

	runSvc  *RunService
	gateSvc *GateService
}

func newTestEnv(t *testing.T, config EngineConfig, providers map[string]ProviderConfig) *testEnv {
	t.Helper()

	env := &testEnv{
		runs:      store.NewMemoryRunStore(),
		evidence:  store.NewMemoryEvidenceStore(),
		results:   store.NewMemoryDetectorResultStore(),
		findings:  store.NewMemoryFindingStore(),
		artifacts: store.NewMemoryArtifactStore(),
		settings:  store.NewMemorySettingsStore(),
		teams:     authz.NewMemoryTeamStore(),
		sink:      &memorySink{},
	}

	registry := connector.NewRegistry(connector.RegistryConfig{ProviderRPS: 1000, ProviderBurst: 1000})
	for _, sim := range simulator.All() {
		registry.Register(sim)
	}

	executor := executors.NewPoolScheduleExecutor(executors.WithMaxConcurrent(2))
	t.Cleanup(func() {
		_ = executor.Shutdown(context.Background())
	})

	checker := authz.NewChecker(env.teams)

	env.runSvc = NewRunService(RunServiceParams{
		Runs:      env.runs,
		Evidence:  env.evidence,
		Results:   env.results,
		Findings:  env.findings,
		Settings:  env.settings,
		Checker:   checker,
		Registry:  registry,
		Detector:  detector.NewEngine(),
		Audit:     env.sink,
		Executor:  executor,
		Config:    config,
		Providers: providers,
	})

	env.gateSvc = NewGateService(GateServiceParams{
		Runs:      env.runs,
		Evidence:  env.evidence,
		Results:   env.results,
		Findings:  env.findings,
		Artifacts: env.artifacts,
		Settings:  env.settings,
		Checker:   checker,
		Audit:     env.sink,
	})

	return env
}

func accessAs(role authz.Role, userID, caseID string) authz.AccessContext {
	return authz.AccessContext{
		Actor:  authz.Actor{UserID: userID, Role: role, TenantID: "t1"},
		CaseID: caseID,
	}
}

func adminAccess(caseID string) authz.AccessContext {
	return accessAs(authz.RoleAdmin, "admin-1", caseID)
}

func validInput(providers ...string) CreateRunInput {
	queries := make([]QueryInput, 0, len(providers))
	for _, provider := range providers {
		queries = append(queries, QueryInput{Provider: provider, Mode: objects.ExecutionModeContentScan})
	}

	return CreateRunInput{
		Subject:       "jane.doe",
		Justification: "DSAR request 2026-118",
		Queries:       queries,
	}
}

func waitTerminal(t *testing.T, env *testEnv, runID string) *objects.Run {
	t.Helper()

	require.Eventually(t, func() bool {
		run, err := env.runs.GetRun("t1", runID)
		return err == nil && run.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	run, err := env.runs.GetRun("t1", runID)
	require.NoError(t, err)

	return run
}

func TestCreateRun(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a draft run with pending queries", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox, simulator.ProviderHRIS))
		require.NoError(t, err)

		require.Equal(t, objects.RunStatusDraft, run.Status)
		require.Equal(t, objects.LegalApprovalNotRequired, run.LegalApprovalStatus)
		require.Equal(t, "c1", run.CaseID)
		require.Contains(t, run.ID, "run-")

		queries, err := env.runs.ListQueries(run.ID)
		require.NoError(t, err)
		require.Len(t, queries, 2)

		for _, query := range queries {
			require.Equal(t, objects.QueryStatusPending, query.Status)
			require.Equal(t, "jane.doe", query.Spec.Subject)
		}

		require.Contains(t, env.sink.actions(), audit.ActionRunCreated)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		tests := []struct {
			name  string
			input CreateRunInput
		}{
			{
				name: "missing justification",
				input: CreateRunInput{
					Subject: "jane.doe",
					Queries: []QueryInput{{Provider: "mailbox", Mode: objects.ExecutionModeContentScan}},
				},
			},
			{
				name: "missing subject",
				input: CreateRunInput{
					Justification: "DSAR",
					Queries:       []QueryInput{{Provider: "mailbox", Mode: objects.ExecutionModeContentScan}},
				},
			},
			{
				name: "no queries",
				input: CreateRunInput{
					Subject:       "jane.doe",
					Justification: "DSAR",
				},
			},
			{
				name: "unknown execution mode",
				input: CreateRunInput{
					Subject:       "jane.doe",
					Justification: "DSAR",
					Queries:       []QueryInput{{Provider: "mailbox", Mode: "DEEP_SCAN"}},
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), tt.input)
				require.ErrorIs(t, err, ErrValidation)
			})
		}

		runs, err := env.runs.ListRuns("t1", "c1")
		require.NoError(t, err)
		require.Empty(t, runs)
	})

	t.Run("read-only roles cannot create runs", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		_, err := env.runSvc.CreateRun(ctx, accessAs(authz.RoleAuditor, "aud-1", "c1"), validInput(simulator.ProviderMailbox))
		require.ErrorIs(t, err, authz.ErrPermissionDenied)
	})

	t.Run("per-user ceiling", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{MaxRunsPerUser: 1}, nil)

		_, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.ErrorIs(t, err, ErrConcurrencyLimitExceeded)

		// Another user is still within the tenant ceiling.
		_, err = env.runSvc.CreateRun(ctx, accessAs(authz.RoleAdmin, "admin-2", "c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)
	})

	t.Run("per-tenant ceiling", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{MaxRunsPerTenant: 2, MaxRunsPerUser: 2}, nil)

		_, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.CreateRun(ctx, accessAs(authz.RoleAdmin, "admin-2", "c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.CreateRun(ctx, accessAs(authz.RoleAdmin, "admin-3", "c1"), validInput(simulator.ProviderMailbox))
		require.ErrorIs(t, err, ErrConcurrencyLimitExceeded)
	})
}

func TestSubmitRun(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the full pipeline to completion", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"),
			validInput(simulator.ProviderMailbox, simulator.ProviderHRIS))
		require.NoError(t, err)

		submitted, err := env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)
		require.Equal(t, objects.RunStatusQueued, submitted.Status)

		final := waitTerminal(t, env, run.ID)
		require.Equal(t, objects.RunStatusCompleted, final.Status)
		require.NotNil(t, final.StartedAt)
		require.NotNil(t, final.CompletedAt)
		require.Empty(t, final.DegradedSummary)

		// The HRIS templates carry health and union terms.
		require.True(t, final.ContainsSpecialCategory)
		require.Equal(t, objects.LegalApprovalRequired, final.LegalApprovalStatus)
		require.Positive(t, final.TotalEvidence)
		require.Positive(t, final.TotalFindings)

		queries, err := env.runs.ListQueries(run.ID)
		require.NoError(t, err)

		for _, query := range queries {
			require.Equal(t, objects.QueryStatusCompleted, query.Status)
			require.Positive(t, query.RecordsFound)
		}

		findings, err := env.findings.ListByRun(run.ID)
		require.NoError(t, err)
		require.NotEmpty(t, findings)

		evidence, err := env.evidence.ListByRun(run.ID)
		require.NoError(t, err)
		require.Len(t, evidence, final.TotalEvidence)

		for _, item := range evidence {
			require.Equal(t, run.ID, item.RunID)
			require.NotEmpty(t, item.ID)
			require.NotEmpty(t, item.QueryID)
		}

		require.Contains(t, env.sink.actions(), audit.ActionRunCompleted)
	})

	t.Run("run without special categories stays clear of the legal gate", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderCRM))
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		final := waitTerminal(t, env, run.ID)
		require.Equal(t, objects.RunStatusCompleted, final.Status)
		require.False(t, final.ContainsSpecialCategory)
		require.Equal(t, objects.LegalApprovalNotRequired, final.LegalApprovalStatus)

		decision, err := env.gateSvc.CheckLegalGate(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Empty(t, decision.Code)
	})

	t.Run("submitting twice is an invalid transition", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)

		waitTerminal(t, env, run.ID)
	})

	t.Run("unknown run", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		_, err := env.runSvc.SubmitRun(ctx, adminAccess("c1"), "run-missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("run from another case reads as not found", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c2"), run.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRunDegradation(t *testing.T) {
	ctx := context.Background()

	t.Run("failing connector degrades the run without failing it", func(t *testing.T) {
		providers := map[string]ProviderConfig{
			simulator.ProviderCRM: {
				Config: connector.Config{simulator.KeySimulateFailure: "collect"},
			},
		}

		env := newTestEnv(t, EngineConfig{ConnectorRetries: 1}, providers)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"),
			validInput(simulator.ProviderMailbox, simulator.ProviderCRM))
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		final := waitTerminal(t, env, run.ID)
		require.Equal(t, objects.RunStatusCompleted, final.Status)
		require.NotEmpty(t, final.DegradedSummary)
		require.Contains(t, final.DegradedSummary, simulator.ProviderCRM)

		queries, err := env.runs.ListQueries(run.ID)
		require.NoError(t, err)

		byProvider := map[string]objects.QueryStatus{}
		for _, query := range queries {
			byProvider[query.Provider] = query.Status
		}

		require.Equal(t, objects.QueryStatusCompleted, byProvider[simulator.ProviderMailbox])
		require.Equal(t, objects.QueryStatusFailed, byProvider[simulator.ProviderCRM])
	})

	t.Run("evidence store failure fails the query, not the pipeline", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		registry := connector.NewRegistry(connector.RegistryConfig{ProviderRPS: 1000, ProviderBurst: 1000})
		for _, sim := range simulator.All() {
			registry.Register(sim)
		}

		executor := executors.NewPoolScheduleExecutor(executors.WithMaxConcurrent(2))
		t.Cleanup(func() {
			_ = executor.Shutdown(context.Background())
		})

		svc := NewRunService(RunServiceParams{
			Runs:     env.runs,
			Evidence: &failingEvidenceStore{MemoryEvidenceStore: env.evidence},
			Results:  env.results,
			Findings: env.findings,
			Settings: env.settings,
			Checker:  authz.NewChecker(env.teams),
			Registry: registry,
			Detector: detector.NewEngine(),
			Audit:    env.sink,
			Executor: executor,
		})

		run, err := svc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = svc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		final := waitTerminal(t, env, run.ID)
		require.Equal(t, objects.RunStatusCompleted, final.Status)
		require.Contains(t, final.DegradedSummary, "store evidence")

		queries, err := env.runs.ListQueries(run.ID)
		require.NoError(t, err)
		require.Len(t, queries, 1)
		require.Equal(t, objects.QueryStatusFailed, queries[0].Status)
		require.Contains(t, queries[0].Error, "evidence store offline")
	})

	t.Run("unknown provider skips the query", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		input := validInput(simulator.ProviderMailbox)
		input.Queries = append(input.Queries, QueryInput{Provider: "sharepoint", Mode: objects.ExecutionModeContentScan})

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), input)
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		final := waitTerminal(t, env, run.ID)
		require.Equal(t, objects.RunStatusCompleted, final.Status)
		require.Contains(t, final.DegradedSummary, "sharepoint")

		queries, err := env.runs.ListQueries(run.ID)
		require.NoError(t, err)

		for _, query := range queries {
			if query.Provider == "sharepoint" {
				require.Equal(t, objects.QueryStatusSkipped, query.Status)
			}
		}
	})
}

func TestCancelRun(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel a draft run skips its queries", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		canceled, err := env.runSvc.CancelRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)
		require.Equal(t, objects.RunStatusCanceled, canceled.Status)
		require.NotNil(t, canceled.CompletedAt)

		queries, err := env.runs.ListQueries(run.ID)
		require.NoError(t, err)

		for _, query := range queries {
			require.Equal(t, objects.QueryStatusSkipped, query.Status)
			require.Equal(t, "run canceled", query.Error)
		}

		require.Contains(t, env.sink.actions(), audit.ActionRunCanceled)
	})

	t.Run("canceling a terminal run is an invalid transition", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.CancelRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		_, err = env.runSvc.CancelRun(ctx, adminAccess("c1"), run.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("canceled runs cannot be submitted", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.CancelRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestRunReads(t *testing.T) {
	ctx := context.Background()

	t.Run("reads hide runs from other cases", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.GetRun(ctx, adminAccess("c2"), run.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = env.runSvc.ListQueries(ctx, adminAccess("c2"), run.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = env.runSvc.ListFindings(ctx, adminAccess("c2"), run.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list runs is scoped to the case", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		_, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		_, err = env.runSvc.CreateRun(ctx, adminAccess("c2"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		runs, err := env.runSvc.ListRuns(ctx, adminAccess("c1"))
		require.NoError(t, err)
		require.Len(t, runs, 1)
		require.Equal(t, "c1", runs[0].CaseID)
	})

	t.Run("scoped roles need team membership", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		_, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderMailbox))
		require.NoError(t, err)

		analyst := accessAs(authz.RoleAnalyst, "an-1", "c1")

		_, err = env.runSvc.ListRuns(ctx, analyst)
		require.ErrorIs(t, err, authz.ErrPermissionDenied)

		env.teams.AddTeamMember("t1", "c1", "an-1")

		runs, err := env.runSvc.ListRuns(ctx, analyst)
		require.NoError(t, err)
		require.Len(t, runs, 1)
	})
}

func TestDetectorRulesInRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("tenant rules contribute findings", func(t *testing.T) {
		env := newTestEnv(t, EngineConfig{}, nil)

		env.settings.Put(objects.TenantSettings{
			TenantID: "t1",
			DetectorRules: []objects.DetectorRule{{
				Name:       "hris-anything",
				Category:   "HR_RECORD",
				Severity:   objects.SeverityWarning,
				Expression: `provider == "hris"`,
			}},
		})

		run, err := env.runSvc.CreateRun(ctx, adminAccess("c1"), validInput(simulator.ProviderHRIS))
		require.NoError(t, err)

		_, err = env.runSvc.SubmitRun(ctx, adminAccess("c1"), run.ID)
		require.NoError(t, err)

		waitTerminal(t, env, run.ID)

		findings, err := env.findings.ListByRun(run.ID)
		require.NoError(t, err)

		categories := make([]objects.DataCategory, 0, len(findings))
		for _, finding := range findings {
			categories = append(categories, finding.Category)
		}

		require.Contains(t, categories, objects.DataCategory("HR_RECORD"))
	})
}
