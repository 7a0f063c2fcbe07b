package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brokle/internal/core/domain/tenancy"
	"brokle/pkg/ulid"
)

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) tenancy.MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(ctx context.Context, m *tenancy.Membership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *membershipRepository) GetByOrgAndUser(ctx context.Context, orgID, userID ulid.ULID) (*tenancy.Membership, error) {
	var m tenancy.Membership
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get membership org=%s user=%s: %w", orgID, userID, tenancy.ErrMembershipNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) Update(ctx context.Context, m *tenancy.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *membershipRepository) Delete(ctx context.Context, orgID, userID ulid.ULID) error {
	return r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Delete(&tenancy.Membership{}).Error
}

func (r *membershipRepository) ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*tenancy.Membership, error) {
	var members []*tenancy.Membership
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*tenancy.Membership, error) {
	var members []*tenancy.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// CountOwners must be called from within the caller's transaction (the db
// handle here is whatever the RepositoryFactory was built with, which is the
// transaction handle when invoked through TransactionManager.WithTransaction)
// so the count and the subsequent mutation observe the same snapshot. The
// owner rows are locked FOR UPDATE so a concurrent demote/remove on the same
// organization blocks until this transaction commits, closing the TOCTOU
// window called out in §5.
func (r *membershipRepository) CountOwners(ctx context.Context, orgID ulid.ULID) (int, error) {
	var owners []tenancy.Membership
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND role = ?", orgID, tenancy.RoleOwner).
		Find(&owners).Error
	return len(owners), err
}
