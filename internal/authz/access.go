package authz

import "fmt"

// Actor is the resolved identity an operation runs as.
type Actor struct {
	UserID   string
	Role     Role
	TenantID string
}

// AccessMode is the kind of case access being requested.
type AccessMode int

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
	AccessModeCopilot
	AccessModeExport
)

func (m AccessMode) String() string {
	switch m {
	case AccessModeRead:
		return "read"
	case AccessModeWrite:
		return "write"
	case AccessModeCopilot:
		return "copilot"
	case AccessModeExport:
		return "export"
	default:
		return "unknown"
	}
}

// permission returns the matrix permission the mode maps onto for scoped
// roles. Global roles are decided before this translation.
func (m AccessMode) permission() Permission {
	switch m {
	case AccessModeRead:
		return PermissionCaseRead
	case AccessModeWrite:
		return PermissionCaseWrite
	case AccessModeCopilot:
		return PermissionCopilotUse
	case AccessModeExport:
		return PermissionExportCreate
	default:
		return PermissionUnknown
	}
}

// AccessContext carries everything the case access predicate needs.
type AccessContext struct {
	Actor            Actor
	CaseID           string
	AssignedToUserID string
}

// Checker answers case access questions. It owns no mutable state beyond
// the injected team store.
type Checker struct {
	teams TeamStore
}

// NewChecker builds a Checker over the given team store.
func NewChecker(teams TeamStore) *Checker {
	return &Checker{teams: teams}
}

// CanAccessCase decides case access for the actor and mode.
//
// Globally privileged roles pass every mode, except the auditor role which
// passes only reads. Scoped roles pass when the case is assigned to them or
// they are a team member, and their permission matrix allows the mode.
func (c *Checker) CanAccessCase(access AccessContext, mode AccessMode) bool {
	role := access.Actor.Role

	if HasGlobalCaseAccess(role) {
		if IsReadOnly(role) {
			return mode == AccessModeRead
		}

		return true
	}

	if !Has(role, mode.permission()) {
		return false
	}

	if access.AssignedToUserID != "" && access.AssignedToUserID == access.Actor.UserID {
		return true
	}

	return c.teams.IsTeamMember(access.Actor.TenantID, access.CaseID, access.Actor.UserID)
}

// EnforceCasePermission is the dual gate combining a matrix check with a
// case access check. Mutating operations on runs, the legal gate, exports,
// and team membership call this before touching state.
func (c *Checker) EnforceCasePermission(access AccessContext, perm Permission) error {
	if err := Enforce(access.Actor.Role, perm); err != nil {
		return err
	}

	mode := AccessModeWrite
	switch perm {
	case PermissionCaseRead, PermissionRunRead, PermissionExportRead:
		mode = AccessModeRead
	case PermissionCopilotUse:
		mode = AccessModeCopilot
	case PermissionExportCreate:
		mode = AccessModeExport
	}

	if !c.CanAccessCase(access, mode) {
		return fmt.Errorf("%w: user %s has no %s access to case %s",
			ErrPermissionDenied, access.Actor.UserID, mode, access.CaseID)
	}

	return nil
}
