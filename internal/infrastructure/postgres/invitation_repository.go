package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brokle/internal/core/domain/tenancy"
	"brokle/pkg/ulid"
)

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) tenancy.InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *tenancy.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invitationRepository) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.Invitation, error) {
	var inv tenancy.Invitation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get invitation %s: %w", id, tenancy.ErrInvitationNotFound)
		}
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) GetByOrgAndEmail(ctx context.Context, orgID ulid.ULID, email string) (*tenancy.Invitation, error) {
	var inv tenancy.Invitation
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND email = ?", orgID, email).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get invitation org=%s email=%s: %w", orgID, email, tenancy.ErrInvitationNotFound)
		}
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) Update(ctx context.Context, inv *tenancy.Invitation) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *invitationRepository) ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*tenancy.Invitation, error) {
	var invites []*tenancy.Invitation
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}
