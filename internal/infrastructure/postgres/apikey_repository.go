package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"brokle/internal/core/domain/tenancy"
	"brokle/pkg/ulid"
)

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) tenancy.APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, k *tenancy.APIKey) error {
	return r.db.WithContext(ctx).Create(k).Error
}

func (r *apiKeyRepository) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.APIKey, error) {
	var k tenancy.APIKey
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&k).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get api key %s: %w", id, tenancy.ErrAPIKeyNotFound)
		}
		return nil, err
	}
	return &k, nil
}

// GetByKeyHash is the hot path for ingestion auth (§4.5); keyHash is
// uniquely indexed so this is a point lookup.
func (r *apiKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*tenancy.APIKey, error) {
	var k tenancy.APIKey
	err := r.db.WithContext(ctx).Where("key_hash = ?", keyHash).First(&k).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get api key by hash: %w", tenancy.ErrAPIKeyNotFound)
		}
		return nil, err
	}
	return &k, nil
}

func (r *apiKeyRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&tenancy.APIKey{}).Error
}

func (r *apiKeyRepository) ListByProject(ctx context.Context, projectID ulid.ULID) ([]*tenancy.APIKey, error) {
	var keys []*tenancy.APIKey
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// TouchLastUsed is best-effort (§3.1, §5); callers must not let its latency
// or failure affect the ingestion critical path.
func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id ulid.ULID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&tenancy.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
