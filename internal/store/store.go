// Package store defines the engine's injected state stores. Everything is
// scoped per tenant or per run; evidence and detector results are
// append-only and safe for concurrent insert from parallel queries.
package store

import (
	"errors"

	"github.com/casewarden/discoveryhub/internal/objects"
)

// ErrNotFound is returned for unknown ids within a tenant. Lookups never
// cross tenants.
var ErrNotFound = errors.New("not found")

// RunStore owns runs and their queries. Runs are never deleted.
type RunStore interface {
	CreateRun(run *objects.Run) error
	GetRun(tenantID, runID string) (*objects.Run, error)
	// UpdateRun applies fn to the run under the store's lock so state
	// machine transitions are atomic.
	UpdateRun(tenantID, runID string, fn func(*objects.Run) error) (*objects.Run, error)
	ListRuns(tenantID, caseID string) ([]*objects.Run, error)

	AddQuery(query *objects.Query) error
	UpdateQuery(runID, queryID string, fn func(*objects.Query) error) (*objects.Query, error)
	ListQueries(runID string) ([]*objects.Query, error)

	// CountActive returns non-terminal runs per tenant and per user, for
	// the concurrency ceiling.
	CountActive(tenantID, userID string) (tenantActive, userActive int)

	Reset()
}

// EvidenceStore is the append-only evidence sink.
type EvidenceStore interface {
	Append(items ...objects.EvidenceItem) error
	ListByRun(runID string) ([]objects.EvidenceItem, error)
	Reset()
}

// DetectorResultStore is the append-only detector output sink.
type DetectorResultStore interface {
	Append(runID string, results ...objects.DetectorResult) error
	ListByRun(runID string) ([]objects.DetectorResult, error)
	Reset()
}

// FindingStore holds aggregated findings per run. ReplaceForRun is
// idempotent: re-aggregation swaps the whole set.
type FindingStore interface {
	ReplaceForRun(runID string, findings []objects.Finding) error
	ListByRun(runID string) ([]objects.Finding, error)
	Reset()
}

// ArtifactStore records export attempts, including blocked ones.
type ArtifactStore interface {
	Append(artifact objects.ExportArtifact) error
	ListByRun(runID string) ([]objects.ExportArtifact, error)
	Reset()
}

// SettingsStore holds per-tenant engine settings.
type SettingsStore interface {
	Get(tenantID string) objects.TenantSettings
	Put(settings objects.TenantSettings)
	Reset()
}
