package tenancy

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"brokle/internal/core/domain/tenancy"
	apperrors "brokle/pkg/errors"
	"brokle/pkg/ulid"
)

// InvitationService manages pending membership invitations (§4.7, §6.2).
type InvitationService struct {
	repos  tenancy.RepositoryFactory
	tx     tenancy.TransactionManager
	logger *logrus.Logger
}

func NewInvitationService(repos tenancy.RepositoryFactory, tx tenancy.TransactionManager, logger *logrus.Logger) *InvitationService {
	return &InvitationService{repos: repos, tx: tx, logger: logger}
}

// Invite requires >= ADMIN; while a still-valid invitation for the same
// org+email exists, a second one is rejected with a conflict error.
func (s *InvitationService) Invite(ctx context.Context, orgID, inviterID ulid.ULID, email, roleName string) (*tenancy.Invitation, error) {
	role, ok := tenancy.ParseRoleLevel(roleName)
	if !ok || role == tenancy.RoleOwner {
		return nil, apperrors.NewValidationError("invalid role", "invitations cannot grant owner directly")
	}

	if existing, _ := s.repos.Invitations().GetByOrgAndEmail(ctx, orgID, email); existing != nil && existing.IsValid() {
		return nil, apperrors.NewConflictError("an invitation is already pending for this email")
	}

	now := time.Now()
	inv := &tenancy.Invitation{
		ID:          ulid.New(),
		OrgID:       orgID,
		Email:       email,
		Role:        role,
		InvitedByID: &inviterID,
		Status:      tenancy.InvitationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Invitations().Create(ctx, inv); err != nil {
		return nil, apperrors.NewInternalError("failed to create invitation", err)
	}
	return inv, nil
}

// ListInvitations requires >= ADMIN (enforced by caller via RequireOrgRole).
func (s *InvitationService) ListInvitations(ctx context.Context, orgID ulid.ULID) ([]*tenancy.Invitation, error) {
	invites, err := s.repos.Invitations().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list invitations", err)
	}
	return invites, nil
}

// Accept resolves a pending invitation into a Membership for userID, inside
// one transaction so an expired/already-accepted invitation cannot race a
// concurrent accept (§5 TOCTOU pattern, same reasoning as owner-protection).
func (s *InvitationService) Accept(ctx context.Context, invitationID, userID ulid.ULID) (*tenancy.Membership, error) {
	var membership *tenancy.Membership
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos tenancy.RepositoryFactory) error {
		inv, err := repos.Invitations().GetByID(ctx, invitationID)
		if err != nil {
			return apperrors.NewNotFoundError("invitation")
		}
		if !inv.IsValid() {
			return apperrors.NewConflictError("invitation is no longer valid")
		}
		if existing, _ := repos.Memberships().GetByOrgAndUser(ctx, inv.OrgID, userID); existing != nil {
			return apperrors.NewConflictError("user is already a member")
		}

		membership = tenancy.NewMembership(inv.OrgID, userID, inv.Role)
		if err := repos.Memberships().Create(ctx, membership); err != nil {
			return apperrors.NewInternalError("failed to create membership", err)
		}

		inv.Accept()
		if err := repos.Invitations().Update(ctx, inv); err != nil {
			return apperrors.NewInternalError("failed to update invitation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// Revoke requires >= ADMIN (enforced by caller).
func (s *InvitationService) Revoke(ctx context.Context, invitationID ulid.ULID) error {
	inv, err := s.repos.Invitations().GetByID(ctx, invitationID)
	if err != nil {
		return apperrors.NewNotFoundError("invitation")
	}
	inv.Revoke()
	if err := s.repos.Invitations().Update(ctx, inv); err != nil {
		return apperrors.NewInternalError("failed to revoke invitation", err)
	}
	return nil
}
