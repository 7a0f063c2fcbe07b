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

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) tenancy.UserRepository {
	return &userRepository{db: db}
}

// UpsertByID is idempotent by id; on conflict it refreshes email/displayName
// so repeated identity-header resolution keeps the row current (§3.1).
func (r *userRepository) UpsertByID(ctx context.Context, id ulid.ULID, email, displayName string) (*tenancy.User, error) {
	user := &tenancy.User{ID: id, Email: email, DisplayName: displayName}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.User, error) {
	var user tenancy.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get user %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*tenancy.User, error) {
	var user tenancy.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get user by email %s: %w", email, gorm.ErrRecordNotFound)
		}
		return nil, err
	}
	return &user, nil
}
