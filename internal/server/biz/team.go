package biz

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/audit"
	"github.com/casewarden/discoveryhub/internal/authz"
)

type TeamServiceParams struct {
	fx.In

	Teams   authz.TeamStore
	Checker *authz.Checker
	Audit   audit.Sink
}

// TeamService manages case team membership, the assignment surface the
// case access predicate consults for scoped roles.
type TeamService struct {
	teams   authz.TeamStore
	checker *authz.Checker
	audit   audit.Sink
}

// NewTeamService builds the team service.
func NewTeamService(params TeamServiceParams) *TeamService {
	return &TeamService{
		teams:   params.Teams,
		checker: params.Checker,
		audit:   params.Audit,
	}
}

// AddMember adds a user to a case team. Adding an existing member is a
// no-op. The caller needs access to the case itself, so a scoped manager
// cannot join arbitrary teams in the tenant.
func (s *TeamService) AddMember(ctx context.Context, access authz.AccessContext, userID string) error {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionTeamManage); err != nil {
		return err
	}

	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}

	s.teams.AddTeamMember(access.Actor.TenantID, access.CaseID, userID)

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    access.Actor.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionTeamMemberAdded,
		EntityType:  "case",
		EntityID:    access.CaseID,
		Details:     map[string]string{"user_id": userID},
	})

	return nil
}

// RemoveMember removes a user from a case team.
func (s *TeamService) RemoveMember(ctx context.Context, access authz.AccessContext, userID string) error {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionTeamManage); err != nil {
		return err
	}

	s.teams.RemoveTeamMember(access.Actor.TenantID, access.CaseID, userID)

	audit.Best(ctx, s.audit, audit.Event{
		TenantID:    access.Actor.TenantID,
		ActorUserID: access.Actor.UserID,
		Action:      audit.ActionTeamMemberRemoved,
		EntityType:  "case",
		EntityID:    access.CaseID,
		Details:     map[string]string{"user_id": userID},
	})

	return nil
}

// ListMembers returns the team for a case.
func (s *TeamService) ListMembers(ctx context.Context, access authz.AccessContext) ([]string, error) {
	if err := s.checker.EnforceCasePermission(access, authz.PermissionCaseRead); err != nil {
		return nil, err
	}

	return s.teams.GetTeamMembers(access.Actor.TenantID, access.CaseID), nil
}
