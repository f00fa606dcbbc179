package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/casewarden/discoveryhub/internal/objects"
)

// MemoryRunStore is the in-process RunStore.
type MemoryRunStore struct {
	mu      sync.RWMutex
	runs    map[string]*objects.Run     // keyed by run id
	queries map[string][]*objects.Query // keyed by run id
}

// NewMemoryRunStore builds an empty run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:    make(map[string]*objects.Run),
		queries: make(map[string][]*objects.Query),
	}
}

func (s *MemoryRunStore) CreateRun(run *objects.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}

	stored := *run
	s.runs[run.ID] = &stored

	return nil
}

func (s *MemoryRunStore) GetRun(tenantID, runID string) (*objects.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok || run.TenantID != tenantID {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}

	copied := *run

	return &copied, nil
}

func (s *MemoryRunStore) UpdateRun(tenantID, runID string, fn func(*objects.Run) error) (*objects.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok || run.TenantID != tenantID {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}

	if err := fn(run); err != nil {
		return nil, err
	}

	copied := *run

	return &copied, nil
}

func (s *MemoryRunStore) ListRuns(tenantID, caseID string) ([]*objects.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*objects.Run

	for _, run := range s.runs {
		if run.TenantID != tenantID {
			continue
		}

		if caseID != "" && run.CaseID != caseID {
			continue
		}

		copied := *run
		runs = append(runs, &copied)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}

		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	return runs, nil
}

func (s *MemoryRunStore) AddQuery(query *objects.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[query.RunID]; !ok {
		return fmt.Errorf("%w: run %s", ErrNotFound, query.RunID)
	}

	stored := *query
	s.queries[query.RunID] = append(s.queries[query.RunID], &stored)

	return nil
}

func (s *MemoryRunStore) UpdateQuery(runID, queryID string, fn func(*objects.Query) error) (*objects.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, query := range s.queries[runID] {
		if query.ID != queryID {
			continue
		}

		if err := fn(query); err != nil {
			return nil, err
		}

		copied := *query

		return &copied, nil
	}

	return nil, fmt.Errorf("%w: query %s", ErrNotFound, queryID)
}

func (s *MemoryRunStore) ListQueries(runID string) ([]*objects.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queries := make([]*objects.Query, 0, len(s.queries[runID]))
	for _, query := range s.queries[runID] {
		copied := *query
		queries = append(queries, &copied)
	}

	return queries, nil
}

func (s *MemoryRunStore) CountActive(tenantID, userID string) (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantActive, userActive := 0, 0

	for _, run := range s.runs {
		if run.TenantID != tenantID || run.Status.Terminal() {
			continue
		}

		tenantActive++

		if run.CreatedBy == userID {
			userActive++
		}
	}

	return tenantActive, userActive
}

func (s *MemoryRunStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]*objects.Run)
	s.queries = make(map[string][]*objects.Query)
}

// MemoryEvidenceStore is the in-process EvidenceStore.
type MemoryEvidenceStore struct {
	mu    sync.RWMutex
	items map[string][]objects.EvidenceItem
}

func NewMemoryEvidenceStore() *MemoryEvidenceStore {
	return &MemoryEvidenceStore{items: make(map[string][]objects.EvidenceItem)}
}

func (s *MemoryEvidenceStore) Append(items ...objects.EvidenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.items[item.RunID] = append(s.items[item.RunID], item)
	}

	return nil
}

func (s *MemoryEvidenceStore) ListByRun(runID string) ([]objects.EvidenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]objects.EvidenceItem, len(s.items[runID]))
	copy(items, s.items[runID])

	return items, nil
}

func (s *MemoryEvidenceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string][]objects.EvidenceItem)
}

// MemoryDetectorResultStore is the in-process DetectorResultStore.
type MemoryDetectorResultStore struct {
	mu      sync.RWMutex
	results map[string][]objects.DetectorResult
}

func NewMemoryDetectorResultStore() *MemoryDetectorResultStore {
	return &MemoryDetectorResultStore{results: make(map[string][]objects.DetectorResult)}
}

func (s *MemoryDetectorResultStore) Append(runID string, results ...objects.DetectorResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[runID] = append(s.results[runID], results...)

	return nil
}

func (s *MemoryDetectorResultStore) ListByRun(runID string) ([]objects.DetectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]objects.DetectorResult, len(s.results[runID]))
	copy(results, s.results[runID])

	return results, nil
}

func (s *MemoryDetectorResultStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make(map[string][]objects.DetectorResult)
}

// MemoryFindingStore is the in-process FindingStore.
type MemoryFindingStore struct {
	mu       sync.RWMutex
	findings map[string][]objects.Finding
}

func NewMemoryFindingStore() *MemoryFindingStore {
	return &MemoryFindingStore{findings: make(map[string][]objects.Finding)}
}

func (s *MemoryFindingStore) ReplaceForRun(runID string, findings []objects.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]objects.Finding, len(findings))
	copy(stored, findings)

	s.findings[runID] = stored

	return nil
}

func (s *MemoryFindingStore) ListByRun(runID string) ([]objects.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	findings := make([]objects.Finding, len(s.findings[runID]))
	copy(findings, s.findings[runID])

	return findings, nil
}

func (s *MemoryFindingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findings = make(map[string][]objects.Finding)
}

// MemoryArtifactStore is the in-process ArtifactStore.
type MemoryArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string][]objects.ExportArtifact
}

func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{artifacts: make(map[string][]objects.ExportArtifact)}
}

func (s *MemoryArtifactStore) Append(artifact objects.ExportArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts[artifact.RunID] = append(s.artifacts[artifact.RunID], artifact)

	return nil
}

func (s *MemoryArtifactStore) ListByRun(runID string) ([]objects.ExportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifacts := make([]objects.ExportArtifact, len(s.artifacts[runID]))
	copy(artifacts, s.artifacts[runID])

	return artifacts, nil
}

func (s *MemoryArtifactStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts = make(map[string][]objects.ExportArtifact)
}

// MemorySettingsStore is the in-process SettingsStore. Unknown tenants get
// zero-value settings, which disable the two-person export rule.
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings map[string]objects.TenantSettings
}

func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{settings: make(map[string]objects.TenantSettings)}
}

func (s *MemorySettingsStore) Get(tenantID string) objects.TenantSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[tenantID]
	if !ok {
		return objects.TenantSettings{TenantID: tenantID}
	}

	return settings
}

func (s *MemorySettingsStore) Put(settings objects.TenantSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settings.TenantID] = settings
}

func (s *MemorySettingsStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = make(map[string]objects.TenantSettings)
}
