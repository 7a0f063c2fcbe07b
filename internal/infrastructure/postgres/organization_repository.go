package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brokle/internal/core/domain/tenancy"
	"brokle/pkg/ulid"
)

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) tenancy.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *tenancy.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *organizationRepository) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.Organization, error) {
	var org tenancy.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get organization %s: %w", id, tenancy.ErrOrganizationNotFound)
		}
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *tenancy.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

// Delete hard-deletes the organization; cascading memberships/projects/
// invitations are enforced by the schema's ON DELETE CASCADE (§3.1).
func (r *organizationRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&tenancy.Organization{}).Error
}

func (r *organizationRepository) ListForUser(ctx context.Context, userID ulid.ULID) ([]*tenancy.Organization, error) {
	var orgs []*tenancy.Organization
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.org_id = organizations.id").
		Where("memberships.user_id = ?", userID).
		Order("organizations.created_at ASC").
		Find(&orgs).Error
	return orgs, err
}
