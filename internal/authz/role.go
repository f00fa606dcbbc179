package authz

import "fmt"

// Role is the closed set of roles known to the engine. Checks over roles
// use exhaustive switches so a new role cannot silently fall through.
type Role int

const (
	// RoleUnknown is the zero value; it never passes any check.
	RoleUnknown Role = iota
	// RoleAdmin administers the tenant and has global case access.
	RoleAdmin
	// RoleDPO is the data protection officer / legal tier.
	RoleDPO
	// RoleAuditor has global read-only case access.
	RoleAuditor
	// RoleCaseManager manages assigned cases and their teams.
	RoleCaseManager
	// RoleAnalyst works cases they are assigned to or teamed on.
	RoleAnalyst
)

// String returns the wire representation of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleDPO:
		return "DPO"
	case RoleAuditor:
		return "AUDITOR"
	case RoleCaseManager:
		return "CASE_MANAGER"
	case RoleAnalyst:
		return "ANALYST"
	case RoleUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// ParseRole maps a wire role name to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "ADMIN":
		return RoleAdmin, nil
	case "DPO":
		return RoleDPO, nil
	case "AUDITOR":
		return RoleAuditor, nil
	case "CASE_MANAGER":
		return RoleCaseManager, nil
	case "ANALYST":
		return RoleAnalyst, nil
	default:
		return RoleUnknown, fmt.Errorf("authz: unknown role %q", s)
	}
}

// Roles lists every valid role, in privilege order. Used by fixtures and
// exhaustive matrix tests.
func Roles() []Role {
	return []Role{RoleAdmin, RoleDPO, RoleAuditor, RoleCaseManager, RoleAnalyst}
}

// HasGlobalCaseAccess reports whether the role bypasses per-case scoping.
func HasGlobalCaseAccess(role Role) bool {
	switch role {
	case RoleAdmin, RoleDPO, RoleAuditor:
		return true
	case RoleCaseManager, RoleAnalyst, RoleUnknown:
		return false
	default:
		return false
	}
}

// IsReadOnly reports whether the role may never mutate engine state.
func IsReadOnly(role Role) bool {
	return role == RoleAuditor
}

// CanApproveExportStep1 reports whether the role satisfies the first step of
// the two-person export rule (case manager tier or higher).
func CanApproveExportStep1(role Role) bool {
	switch role {
	case RoleAdmin, RoleDPO, RoleCaseManager:
		return true
	case RoleAuditor, RoleAnalyst, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanApproveExportStep2 reports whether the role satisfies the second step
// of the two-person export rule (DPO/legal tier or higher).
func CanApproveExportStep2(role Role) bool {
	switch role {
	case RoleAdmin, RoleDPO:
		return true
	case RoleAuditor, RoleCaseManager, RoleAnalyst, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanApproveLegal reports whether the role may decide the Art. 9 legal gate.
// Same tier as the second export approval step.
func CanApproveLegal(role Role) bool {
	return CanApproveExportStep2(role)
}

// CanManageTenantSettings reports whether the role may edit tenant-wide
// engine settings (detector rules, export policy).
func CanManageTenantSettings(role Role) bool {
	switch role {
	case RoleAdmin, RoleDPO:
		return true
	case RoleAuditor, RoleCaseManager, RoleAnalyst, RoleUnknown:
		return false
	default:
		return false
	}
}
