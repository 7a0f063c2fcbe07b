package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brokle/internal/core/domain/tenancy"
	"brokle/pkg/ulid"
)

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) tenancy.ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *tenancy.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.Project, error) {
	var p tenancy.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get project %s: %w", id, tenancy.ErrProjectNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) Update(ctx context.Context, p *tenancy.Project) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// SoftDelete sets deletedAt; GORM's gorm.DeletedAt hook makes this the
// default behavior of .Delete, but it's spelled out here since the project
// scope always uses soft-delete, never hard-delete (§3.3).
func (r *projectRepository) SoftDelete(ctx context.Context, id ulid.ULID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&tenancy.Project{}).Error
}

func (r *projectRepository) ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*tenancy.Project, error) {
	var projects []*tenancy.Project
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&projects).Error
	return projects, err
}

// ExistsByOrgAndName checks the partial-unique-index constraint before
// insert/rename (§3.1, §4.3). Soft-deleted rows are excluded by GORM's
// default scope.
func (r *projectRepository) ExistsByOrgAndName(ctx context.Context, orgID ulid.ULID, name string, excludeID *ulid.ULID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&tenancy.Project{}).Where("org_id = ? AND name = ?", orgID, name)
	if excludeID != nil {
		q = q.Where("id != ?", *excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
