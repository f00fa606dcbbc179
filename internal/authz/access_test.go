package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testChecker(t *testing.T) (*Checker, *MemoryTeamStore) {
	t.Helper()

	teams := NewMemoryTeamStore()

	return NewChecker(teams), teams
}

func access(role Role, userID, caseID string) AccessContext {
	return AccessContext{
		Actor:  Actor{UserID: userID, Role: role, TenantID: "t1"},
		CaseID: caseID,
	}
}

func TestCanAccessCase(t *testing.T) {
	t.Run("global roles pass every mode", func(t *testing.T) {
		checker, _ := testChecker(t)

		for _, role := range []Role{RoleAdmin, RoleDPO} {
			for _, mode := range []AccessMode{AccessModeRead, AccessModeWrite, AccessModeCopilot, AccessModeExport} {
				require.True(t, checker.CanAccessCase(access(role, "u1", "c1"), mode),
					"expected %s to pass %s", role, mode)
			}
		}
	})

	t.Run("auditor passes reads only", func(t *testing.T) {
		checker, _ := testChecker(t)

		require.True(t, checker.CanAccessCase(access(RoleAuditor, "u1", "c1"), AccessModeRead))
		require.False(t, checker.CanAccessCase(access(RoleAuditor, "u1", "c1"), AccessModeWrite))
		require.False(t, checker.CanAccessCase(access(RoleAuditor, "u1", "c1"), AccessModeExport))
	})

	t.Run("scoped role needs assignment or membership", func(t *testing.T) {
		checker, teams := testChecker(t)

		ac := access(RoleAnalyst, "u1", "c1")
		require.False(t, checker.CanAccessCase(ac, AccessModeRead))

		teams.AddTeamMember("t1", "c1", "u1")
		require.True(t, checker.CanAccessCase(ac, AccessModeRead))

		// Membership never overrides the permission matrix.
		require.False(t, checker.CanAccessCase(ac, AccessModeWrite))
	})

	t.Run("direct assignment grants access without membership", func(t *testing.T) {
		checker, _ := testChecker(t)

		ac := access(RoleCaseManager, "u2", "c1")
		require.False(t, checker.CanAccessCase(ac, AccessModeWrite))

		ac.AssignedToUserID = "u2"
		require.True(t, checker.CanAccessCase(ac, AccessModeWrite))

		// Assignment to somebody else does not help.
		ac.AssignedToUserID = "u9"
		require.False(t, checker.CanAccessCase(ac, AccessModeWrite))
	})

	t.Run("membership is tenant scoped", func(t *testing.T) {
		checker, teams := testChecker(t)

		teams.AddTeamMember("other-tenant", "c1", "u1")
		require.False(t, checker.CanAccessCase(access(RoleAnalyst, "u1", "c1"), AccessModeRead))
	})
}

func TestEnforceCasePermission(t *testing.T) {
	t.Run("matrix denial wins before case access", func(t *testing.T) {
		checker, teams := testChecker(t)
		teams.AddTeamMember("t1", "c1", "u1")

		err := checker.EnforceCasePermission(access(RoleAnalyst, "u1", "c1"), PermissionLegalApprove)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("case manager cannot approve the legal gate", func(t *testing.T) {
		checker, teams := testChecker(t)
		teams.AddTeamMember("t1", "c1", "u1")

		err := checker.EnforceCasePermission(access(RoleCaseManager, "u1", "c1"), PermissionLegalApprove)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("member with matrix permission passes", func(t *testing.T) {
		checker, teams := testChecker(t)
		teams.AddTeamMember("t1", "c1", "u1")

		require.NoError(t, checker.EnforceCasePermission(access(RoleCaseManager, "u1", "c1"), PermissionRunCreate))
	})

	t.Run("non-member scoped role is denied", func(t *testing.T) {
		checker, _ := testChecker(t)

		err := checker.EnforceCasePermission(access(RoleCaseManager, "u1", "c1"), PermissionRunCreate)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("read permissions map onto read access", func(t *testing.T) {
		checker, _ := testChecker(t)

		require.NoError(t, checker.EnforceCasePermission(access(RoleAuditor, "u1", "c1"), PermissionRunRead))
	})
}

func TestMemoryTeamStore(t *testing.T) {
	teams := NewMemoryTeamStore()

	teams.AddTeamMember("t1", "c1", "u1")
	teams.AddTeamMember("t1", "c1", "u2")
	teams.AddTeamMember("t1", "c1", "u1") // idempotent
	teams.AddTeamMember("t1", "c2", "u1")

	require.Equal(t, []string{"u1", "u2"}, teams.GetTeamMembers("t1", "c1"))
	require.Equal(t, []string{"c1", "c2"}, teams.GetCasesForUser("t1", "u1"))
	require.True(t, teams.IsTeamMember("t1", "c1", "u2"))

	teams.RemoveTeamMember("t1", "c1", "u2")
	require.False(t, teams.IsTeamMember("t1", "c1", "u2"))

	teams.Reset()
	require.Empty(t, teams.GetTeamMembers("t1", "c1"))
}
