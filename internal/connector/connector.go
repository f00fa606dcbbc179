// Package connector defines the contract every data source adapter
// implements, and the registry the run engine dispatches through. The wire
// protocol of each real source lives behind the adapter; the engine only
// sees typed evidence.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/casewarden/discoveryhub/internal/objects"
)

// ErrConnectorFailure marks per-query connector failures. Recovered at the
// dispatch layer: the query fails or is skipped, the run continues.
var ErrConnectorFailure = errors.New("connector failure")

// ErrUnknownProvider is returned when a query targets a provider the
// registry has no connector for.
var ErrUnknownProvider = errors.New("unknown provider")

// Config carries connector-specific settings. SecretRef names a credential
// in the external secret store; the engine never sees secret material.
type Config map[string]string

// HealthResult is the outcome of a connector health check.
type HealthResult struct {
	Healthy   bool              `json:"healthy"`
	Message   string            `json:"message,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CheckedAt time.Time         `json:"checkedAt"`
}

// CollectResult is what a connector returns for one query spec.
type CollectResult struct {
	Success         bool                   `json:"success"`
	RecordsFound    int                    `json:"recordsFound"`
	FindingsSummary string                 `json:"findingsSummary,omitempty"`
	ResultMetadata  json.RawMessage        `json:"resultMetadata,omitempty"`
	EvidenceItems   []objects.EvidenceItem `json:"evidenceItems,omitempty"`
}

// Connector is the capability every data source adapter implements.
type Connector interface {
	// Name returns the provider identifier queries target.
	Name() string

	// HealthCheck verifies the adapter can reach its source.
	HealthCheck(ctx context.Context, cfg Config, secretRef string) (HealthResult, error)

	// CollectData collects evidence matching the query spec. Returned
	// evidence items carry no run/query ids; the engine assigns ownership.
	CollectData(ctx context.Context, cfg Config, secretRef string, spec objects.QuerySpec) (CollectResult, error)
}
