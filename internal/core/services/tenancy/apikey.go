package tenancy

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"brokle/internal/core/domain/tenancy"
	apperrors "brokle/pkg/errors"
	"brokle/pkg/ulid"
)

// apiKeyCacheEntry is the LRU payload for a validated hash -> project lookup
// (SPEC_FULL §3 "API-key LRU cache"). Expiry is still re-checked against
// ExpiresAt on every hit so a revoked/expired key cannot authenticate just
// because it is warm in the cache.
type apiKeyCacheEntry struct {
	projectID ulid.ULID
	keyID     ulid.ULID
	expiresAt *time.Time
	cachedAt  time.Time
}

const apiKeyCacheTTL = 30 * time.Second

// APIKeyService creates, resolves, and revokes API keys, and answers the
// ingestion endpoint's auth question (§4.5).
type APIKeyService struct {
	repos  tenancy.RepositoryFactory
	cache  *lru.Cache[string, apiKeyCacheEntry]
	logger *logrus.Logger
}

func NewAPIKeyService(repos tenancy.RepositoryFactory, logger *logrus.Logger) *APIKeyService {
	cache, _ := lru.New[string, apiKeyCacheEntry](4096)
	return &APIKeyService{repos: repos, cache: cache, logger: logger}
}

// CreateAPIKey requires >= ADMIN; returns the plaintext key exactly once
// (§3.1, §6.2).
func (s *APIKeyService) CreateAPIKey(ctx context.Context, projectID, actorID ulid.ULID, name string, expiresAt *time.Time, requireRole func(ctx context.Context, projectID, actorID ulid.ULID) error) (*tenancy.CreateAPIKeyResponse, error) {
	if requireRole != nil {
		if err := requireRole(ctx, projectID, actorID); err != nil {
			return nil, err
		}
	}

	token, err := tenancy.GenerateAPIKeyToken()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate api key", err)
	}

	key := &tenancy.APIKey{
		ID:        ulid.New(),
		ProjectID: projectID,
		KeyHash:   tenancy.HashAPIKeyToken(token),
		KeyPrefix: tenancy.KeyPreviewPrefix(token),
		Name:      name,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.repos.APIKeys().Create(ctx, key); err != nil {
		return nil, apperrors.NewInternalError("failed to persist api key", err)
	}

	return &tenancy.CreateAPIKeyResponse{
		ID:        key.ID,
		Key:       token,
		KeyPrefix: key.KeyPrefix,
		Name:      key.Name,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

// ListAPIKeys never returns the plaintext key, only hash-free metadata
// (§3.1 "API-key secrecy").
func (s *APIKeyService) ListAPIKeys(ctx context.Context, projectID ulid.ULID) ([]*tenancy.APIKey, error) {
	keys, err := s.repos.APIKeys().ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list api keys", err)
	}
	for _, k := range keys {
		k.KeyHash = ""
	}
	return keys, nil
}

// DeleteAPIKey immediately invalidates authentication for the key (§8.2),
// including dropping it from the LRU cache.
func (s *APIKeyService) DeleteAPIKey(ctx context.Context, keyID ulid.ULID) error {
	key, err := s.repos.APIKeys().GetByID(ctx, keyID)
	if err != nil {
		return apperrors.NewNotFoundError("api key")
	}
	if err := s.repos.APIKeys().Delete(ctx, keyID); err != nil {
		return apperrors.NewInternalError("failed to delete api key", err)
	}
	s.cache.Remove(key.KeyHash)
	return nil
}

// Authenticate resolves a bearer token to a projectID for the ingestion
// endpoint only (§4.5, §4.7 "does not resolve a user"). Unknown hash,
// missing header, or expired key are all Unauthorized per §4.5/§6.2.
func (s *APIKeyService) Authenticate(ctx context.Context, token string) (ulid.ULID, ulid.ULID, error) {
	hash := tenancy.HashAPIKeyToken(token)

	if entry, ok := s.cache.Get(hash); ok && time.Since(entry.cachedAt) < apiKeyCacheTTL {
		if entry.expiresAt != nil && time.Now().After(*entry.expiresAt) {
			s.cache.Remove(hash)
			return ulid.ULID{}, ulid.ULID{}, apperrors.NewUnauthorizedError("api key expired")
		}
		return entry.projectID, entry.keyID, nil
	}

	key, err := s.repos.APIKeys().GetByKeyHash(ctx, hash)
	if err != nil {
		return ulid.ULID{}, ulid.ULID{}, apperrors.NewUnauthorizedError("invalid api key")
	}
	if key.IsExpired() {
		return ulid.ULID{}, ulid.ULID{}, apperrors.NewUnauthorizedError("api key expired")
	}

	s.cache.Add(hash, apiKeyCacheEntry{
		projectID: key.ProjectID,
		keyID:     key.ID,
		expiresAt: key.ExpiresAt,
		cachedAt:  time.Now(),
	})

	return key.ProjectID, key.ID, nil
}

// TouchLastUsed is best-effort and must never block the caller (§3.1, §5):
// callers should invoke this in a goroutine or fire-and-forget.
func (s *APIKeyService) TouchLastUsed(ctx context.Context, keyID ulid.ULID) {
	if err := s.repos.APIKeys().TouchLastUsed(ctx, keyID, time.Now()); err != nil {
		s.logger.WithError(err).WithField("api_key_id", keyID.String()).Warn("failed to update api key last_used_at")
	}
}
