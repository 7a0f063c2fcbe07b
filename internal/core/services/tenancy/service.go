// Package tenancy implements the business rules gating organizations,
// memberships, projects, API keys, and invitations (§4.7, §5).
package tenancy

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"brokle/internal/core/domain/tenancy"
	apperrors "brokle/pkg/errors"
	"brokle/pkg/ulid"
)

// Service is the tenancy business-logic facade used by HTTP handlers.
type Service struct {
	repos  tenancy.RepositoryFactory
	tx     tenancy.TransactionManager
	logger *logrus.Logger
}

func NewService(repos tenancy.RepositoryFactory, tx tenancy.TransactionManager, logger *logrus.Logger) *Service {
	return &Service{repos: repos, tx: tx, logger: logger}
}

// UpsertUser resolves the authenticated identity headers (§6.5) into a User
// row, creating it on first sight.
func (s *Service) UpsertUser(ctx context.Context, id ulid.ULID, email, displayName string) (*tenancy.User, error) {
	return s.repos.Users().UpsertByID(ctx, id, email, displayName)
}

// CreateOrganization creates an organization with the caller as its sole
// OWNER, inside one transaction (§4.7 "created by a user who becomes the
// sole OWNER").
func (s *Service) CreateOrganization(ctx context.Context, ownerID ulid.ULID, name string) (*tenancy.Organization, error) {
	var org *tenancy.Organization
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos tenancy.RepositoryFactory) error {
		org = tenancy.NewOrganization(name)
		if err := repos.Organizations().Create(ctx, org); err != nil {
			return apperrors.NewInternalError("failed to create organization", err)
		}
		membership := tenancy.NewMembership(org.ID, ownerID, tenancy.RoleOwner)
		if err := repos.Memberships().Create(ctx, membership); err != nil {
			return apperrors.NewInternalError("failed to create owner membership", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// ListOrganizationsForUser lists orgs the user belongs to along with role.
func (s *Service) ListOrganizationsForUser(ctx context.Context, userID ulid.ULID) ([]tenancy.MembershipView, error) {
	memberships, err := s.repos.Memberships().ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list memberships", err)
	}

	views := make([]tenancy.MembershipView, 0, len(memberships))
	for _, m := range memberships {
		org, err := s.repos.Organizations().GetByID(ctx, m.OrgID)
		if err != nil {
			continue
		}
		views = append(views, tenancy.MembershipView{OrgID: org.ID, Name: org.Name, Role: m.Role.String()})
	}
	return views, nil
}

// RequireMembership resolves (orgID, userID) to a Membership, or Forbidden
// if none exists (§4.7 "Organization membership").
func (s *Service) RequireMembership(ctx context.Context, orgID, userID ulid.ULID) (*tenancy.Membership, error) {
	m, err := s.repos.Memberships().GetByOrgAndUser(ctx, orgID, userID)
	if err != nil {
		return nil, apperrors.NewForbiddenError("not a member of this organization")
	}
	return m, nil
}

// RequireOrgRole fails with Forbidden when the caller's role level is below
// minRole (§4.7 "role gate").
func (s *Service) RequireOrgRole(ctx context.Context, orgID, userID ulid.ULID, minRole tenancy.RoleLevel) (*tenancy.Membership, error) {
	m, err := s.RequireMembership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role < minRole {
		return nil, apperrors.NewForbiddenError("insufficient role for this operation")
	}
	return m, nil
}

// RequireProjectAccess resolves a project to its organization and checks
// membership (§4.7 "Project access"). Missing project -> NotFound; no
// membership -> Forbidden.
func (s *Service) RequireProjectAccess(ctx context.Context, projectID, userID ulid.ULID) (*tenancy.Project, *tenancy.Membership, error) {
	project, err := s.repos.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, apperrors.NewNotFoundError("project")
	}
	m, err := s.RequireMembership(ctx, project.OrgID, userID)
	if err != nil {
		return nil, nil, err
	}
	return project, m, nil
}

// UpdateOrganization requires >= ADMIN (§6.2).
func (s *Service) UpdateOrganization(ctx context.Context, orgID, userID ulid.ULID, name *string) (*tenancy.Organization, error) {
	if _, err := s.RequireOrgRole(ctx, orgID, userID, tenancy.RoleAdmin); err != nil {
		return nil, err
	}
	org, err := s.repos.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("organization")
	}
	if name != nil {
		org.Name = *name
	}
	org.UpdatedAt = time.Now()
	if err := s.repos.Organizations().Update(ctx, org); err != nil {
		return nil, apperrors.NewInternalError("failed to update organization", err)
	}
	return org, nil
}

// DeleteOrganization requires OWNER (§6.2); cascades per §3.1.
func (s *Service) DeleteOrganization(ctx context.Context, orgID, userID ulid.ULID) error {
	if _, err := s.RequireOrgRole(ctx, orgID, userID, tenancy.RoleOwner); err != nil {
		return err
	}
	if err := s.repos.Organizations().Delete(ctx, orgID); err != nil {
		return apperrors.NewInternalError("failed to delete organization", err)
	}
	return nil
}

// AddMember requires >= ADMIN; cannot add a member directly as OWNER (§6.2).
func (s *Service) AddMember(ctx context.Context, orgID, actorID, newUserID ulid.ULID, roleName string) (*tenancy.Membership, error) {
	if _, err := s.RequireOrgRole(ctx, orgID, actorID, tenancy.RoleAdmin); err != nil {
		return nil, err
	}
	role, ok := tenancy.ParseRoleLevel(roleName)
	if !ok || role == tenancy.RoleOwner {
		return nil, apperrors.NewValidationError("invalid role", "owners are only created on org creation or by promotion")
	}

	var m *tenancy.Membership
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos tenancy.RepositoryFactory) error {
		if existing, _ := repos.Memberships().GetByOrgAndUser(ctx, orgID, newUserID); existing != nil {
			return apperrors.NewConflictError("user is already a member")
		}
		m = tenancy.NewMembership(orgID, newUserID, role)
		if err := repos.Memberships().Create(ctx, m); err != nil {
			return apperrors.NewInternalError("failed to add member", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMemberRole requires >= ADMIN; role change is subject to the
// owner-protection invariant, checked inside the same transaction as the
// mutation (§4.7, §5 TOCTOU note).
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, actorID, targetUserID ulid.ULID, newRoleName string) error {
	if _, err := s.RequireOrgRole(ctx, orgID, actorID, tenancy.RoleAdmin); err != nil {
		return err
	}
	newRole, ok := tenancy.ParseRoleLevel(newRoleName)
	if !ok {
		return apperrors.NewValidationError("invalid role", "")
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context, repos tenancy.RepositoryFactory) error {
		m, err := repos.Memberships().GetByOrgAndUser(ctx, orgID, targetUserID)
		if err != nil {
			return apperrors.NewNotFoundError("membership")
		}
		if m.Role == tenancy.RoleOwner && newRole != tenancy.RoleOwner {
			owners, err := repos.Memberships().CountOwners(ctx, orgID)
			if err != nil {
				return apperrors.NewInternalError("failed to count owners", err)
			}
			if owners <= 1 {
				return apperrors.NewConflictError(tenancy.ErrLastOwner.Error())
			}
		}
		m.Role = newRole
		m.UpdatedAt = time.Now()
		if err := repos.Memberships().Update(ctx, m); err != nil {
			return apperrors.NewInternalError("failed to update member role", err)
		}
		return nil
	})
}

// RemoveMember requires >= ADMIN; owner-protection applies (§4.7, §5).
func (s *Service) RemoveMember(ctx context.Context, orgID, actorID, targetUserID ulid.ULID) error {
	if _, err := s.RequireOrgRole(ctx, orgID, actorID, tenancy.RoleAdmin); err != nil {
		return err
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context, repos tenancy.RepositoryFactory) error {
		m, err := repos.Memberships().GetByOrgAndUser(ctx, orgID, targetUserID)
		if err != nil {
			return apperrors.NewNotFoundError("membership")
		}
		if m.Role == tenancy.RoleOwner {
			owners, err := repos.Memberships().CountOwners(ctx, orgID)
			if err != nil {
				return apperrors.NewInternalError("failed to count owners", err)
			}
			if owners <= 1 {
				return apperrors.NewConflictError(tenancy.ErrLastOwner.Error())
			}
		}
		if err := repos.Memberships().Delete(ctx, orgID, targetUserID); err != nil {
			return apperrors.NewInternalError("failed to remove member", err)
		}
		return nil
	})
}

// CreateProject requires >= ADMIN; name unique per org (§6.2, §3.1).
func (s *Service) CreateProject(ctx context.Context, orgID, actorID ulid.ULID, name string, retentionDays *int) (*tenancy.Project, error) {
	if _, err := s.RequireOrgRole(ctx, orgID, actorID, tenancy.RoleAdmin); err != nil {
		return nil, err
	}

	exists, err := s.repos.Projects().ExistsByOrgAndName(ctx, orgID, name, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check project name", err)
	}
	if exists {
		return nil, apperrors.NewConflictError(tenancy.ErrDuplicateProjectName.Error())
	}

	project := tenancy.NewProject(orgID, name, retentionDays)
	if err := s.repos.Projects().Create(ctx, project); err != nil {
		return nil, apperrors.NewInternalError("failed to create project", err)
	}
	return project, nil
}

// UpdateProject requires >= ADMIN on the project's org.
func (s *Service) UpdateProject(ctx context.Context, projectID, actorID ulid.ULID, name *string, retentionDays *int) (*tenancy.Project, error) {
	project, err := s.repos.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("project")
	}
	if _, err := s.RequireOrgRole(ctx, project.OrgID, actorID, tenancy.RoleAdmin); err != nil {
		return nil, err
	}

	if name != nil && *name != project.Name {
		exists, err := s.repos.Projects().ExistsByOrgAndName(ctx, project.OrgID, *name, &project.ID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to check project name", err)
		}
		if exists {
			return nil, apperrors.NewConflictError(tenancy.ErrDuplicateProjectName.Error())
		}
		project.Name = *name
	}
	if retentionDays != nil {
		project.RetentionDays = retentionDays
	}
	project.UpdatedAt = time.Now()

	if err := s.repos.Projects().Update(ctx, project); err != nil {
		return nil, apperrors.NewInternalError("failed to update project", err)
	}
	return project, nil
}

// DeleteProject soft-deletes; requires >= ADMIN (§3.1, §6.2).
func (s *Service) DeleteProject(ctx context.Context, projectID, actorID ulid.ULID) error {
	project, err := s.repos.Projects().GetByID(ctx, projectID)
	if err != nil {
		return apperrors.NewNotFoundError("project")
	}
	if _, err := s.RequireOrgRole(ctx, project.OrgID, actorID, tenancy.RoleAdmin); err != nil {
		return err
	}
	if err := s.repos.Projects().SoftDelete(ctx, projectID); err != nil {
		return apperrors.NewInternalError("failed to delete project", err)
	}
	return nil
}
