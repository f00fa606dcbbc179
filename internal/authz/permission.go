package authz

import "fmt"

// Permission is the closed set of fine-grained permissions.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionCaseRead
	PermissionCaseWrite
	PermissionRunCreate
	PermissionRunCancel
	PermissionRunRead
	PermissionLegalApprove
	PermissionExportCreate
	PermissionExportRead
	PermissionTeamManage
	PermissionCopilotUse
)

// String returns the wire representation of the permission.
func (p Permission) String() string {
	switch p {
	case PermissionCaseRead:
		return "case:read"
	case PermissionCaseWrite:
		return "case:write"
	case PermissionRunCreate:
		return "run:create"
	case PermissionRunCancel:
		return "run:cancel"
	case PermissionRunRead:
		return "run:read"
	case PermissionLegalApprove:
		return "legal:approve"
	case PermissionExportCreate:
		return "export:create"
	case PermissionExportRead:
		return "export:read"
	case PermissionTeamManage:
		return "team:manage"
	case PermissionCopilotUse:
		return "copilot:use"
	case PermissionUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Permissions lists every valid permission, used by matrix fixtures.
func Permissions() []Permission {
	return []Permission{
		PermissionCaseRead,
		PermissionCaseWrite,
		PermissionRunCreate,
		PermissionRunCancel,
		PermissionRunRead,
		PermissionLegalApprove,
		PermissionExportCreate,
		PermissionExportRead,
		PermissionTeamManage,
		PermissionCopilotUse,
	}
}

// rolePermissions returns the permission set of a role. The switch is the
// single source of truth for the matrix; the legacy resource/action API and
// the access modes both translate onto it.
func rolePermissions(role Role) map[Permission]bool {
	switch role {
	case RoleAdmin:
		all := make(map[Permission]bool, len(Permissions()))
		for _, p := range Permissions() {
			all[p] = true
		}

		return all
	case RoleDPO:
		return map[Permission]bool{
			PermissionCaseRead:     true,
			PermissionCaseWrite:    true,
			PermissionRunCreate:    true,
			PermissionRunCancel:    true,
			PermissionRunRead:      true,
			PermissionLegalApprove: true,
			PermissionExportCreate: true,
			PermissionExportRead:   true,
			PermissionTeamManage:   true,
			PermissionCopilotUse:   true,
		}
	case RoleAuditor:
		return map[Permission]bool{
			PermissionCaseRead:   true,
			PermissionRunRead:    true,
			PermissionExportRead: true,
		}
	case RoleCaseManager:
		return map[Permission]bool{
			PermissionCaseRead:     true,
			PermissionCaseWrite:    true,
			PermissionRunCreate:    true,
			PermissionRunCancel:    true,
			PermissionRunRead:      true,
			PermissionExportCreate: true,
			PermissionExportRead:   true,
			PermissionTeamManage:   true,
			PermissionCopilotUse:   true,
		}
	case RoleAnalyst:
		return map[Permission]bool{
			PermissionCaseRead:   true,
			PermissionRunCreate:  true,
			PermissionRunCancel:  true,
			PermissionRunRead:    true,
			PermissionExportRead: true,
			PermissionCopilotUse: true,
		}
	case RoleUnknown:
		return nil
	default:
		return nil
	}
}

// Has reports whether the role carries the permission.
func Has(role Role, perm Permission) bool {
	return rolePermissions(role)[perm]
}

// Enforce fails with ErrPermissionDenied when the role lacks the permission.
func Enforce(role Role, perm Permission) error {
	if !Has(role, perm) {
		return fmt.Errorf("%w: role %s lacks %s", ErrPermissionDenied, role, perm)
	}

	return nil
}

// Resource and Action form the legacy coarse permission API kept for older
// integrations. It translates onto the fine-grained matrix.
type (
	Resource string
	Action   string
)

const (
	ResourceCase   Resource = "case"
	ResourceRun    Resource = "run"
	ResourceExport Resource = "export"
	ResourceTeam   Resource = "team"

	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionApprove Action = "approve"
)

// CanResourceAction answers the legacy resource/action permission question
// by translating it to fine-grained permissions.
func CanResourceAction(role Role, resource Resource, action Action) bool {
	perm := PermissionUnknown

	switch resource {
	case ResourceCase:
		if action == ActionRead {
			perm = PermissionCaseRead
		} else if action == ActionWrite {
			perm = PermissionCaseWrite
		}
	case ResourceRun:
		if action == ActionRead {
			perm = PermissionRunRead
		} else if action == ActionWrite {
			perm = PermissionRunCreate
		}
	case ResourceExport:
		switch action {
		case ActionRead:
			perm = PermissionExportRead
		case ActionWrite:
			perm = PermissionExportCreate
		case ActionApprove:
			perm = PermissionLegalApprove
		}
	case ResourceTeam:
		if action == ActionRead {
			perm = PermissionCaseRead
		} else if action == ActionWrite {
			perm = PermissionTeamManage
		}
	}

	if perm == PermissionUnknown {
		return false
	}

	return Has(role, perm)
}
