package authz

import (
	"sort"
	"sync"
)

// TeamStore records explicit, non-role-based case access. Grants are scoped
// by tenant and must never leak across tenants.
type TeamStore interface {
	AddTeamMember(tenantID, caseID, userID string)
	RemoveTeamMember(tenantID, caseID, userID string)
	IsTeamMember(tenantID, caseID, userID string) bool
	GetTeamMembers(tenantID, caseID string) []string
	GetCasesForUser(tenantID, userID string) []string

	// Reset clears all grants. Test teardown only.
	Reset()
}

type teamKey struct {
	tenantID string
	caseID   string
}

// MemoryTeamStore is the in-process TeamStore. Safe for concurrent use
// across many runs and users.
type MemoryTeamStore struct {
	mu     sync.RWMutex
	grants map[teamKey]map[string]bool
}

// NewMemoryTeamStore builds an empty store.
func NewMemoryTeamStore() *MemoryTeamStore {
	return &MemoryTeamStore{grants: make(map[teamKey]map[string]bool)}
}

// AddTeamMember grants the user access to the case. Adding twice is a no-op.
func (s *MemoryTeamStore) AddTeamMember(tenantID, caseID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := teamKey{tenantID: tenantID, caseID: caseID}
	if s.grants[key] == nil {
		s.grants[key] = make(map[string]bool)
	}

	s.grants[key][userID] = true
}

// RemoveTeamMember revokes the grant if present.
func (s *MemoryTeamStore) RemoveTeamMember(tenantID, caseID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants[teamKey{tenantID: tenantID, caseID: caseID}], userID)
}

// IsTeamMember reports whether the user holds a grant for the case within
// the tenant. Cross-tenant queries always return false.
func (s *MemoryTeamStore) IsTeamMember(tenantID, caseID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.grants[teamKey{tenantID: tenantID, caseID: caseID}][userID]
}

// GetTeamMembers returns the users granted access to the case, sorted.
func (s *MemoryTeamStore) GetTeamMembers(tenantID, caseID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]string, 0, len(s.grants[teamKey{tenantID: tenantID, caseID: caseID}]))
	for userID := range s.grants[teamKey{tenantID: tenantID, caseID: caseID}] {
		members = append(members, userID)
	}

	sort.Strings(members)

	return members
}

// GetCasesForUser returns the cases the user is teamed on within the
// tenant, sorted.
func (s *MemoryTeamStore) GetCasesForUser(tenantID, userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cases []string

	for key, members := range s.grants {
		if key.tenantID == tenantID && members[userID] {
			cases = append(cases, key.caseID)
		}
	}

	sort.Strings(cases)

	return cases
}

// Reset clears all grants.
func (s *MemoryTeamStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants = make(map[teamKey]map[string]bool)
}
