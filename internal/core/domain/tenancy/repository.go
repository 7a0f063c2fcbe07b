package tenancy

import (
	"context"
	"time"

	"brokle/pkg/ulid"
)

// UserRepository persists the User entity. UpsertByID is idempotent by id
// only; email is not used as a lookup key, so an upsert whose email is already
// held by a user with a different id fails on the unique email index.
type UserRepository interface {
	UpsertByID(ctx context.Context, id ulid.ULID, email, displayName string) (*User, error)
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// OrganizationRepository persists Organization rows.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id ulid.ULID) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id ulid.ULID) error
	ListForUser(ctx context.Context, userID ulid.ULID) ([]*Organization, error)
}

// MembershipRepository persists Membership rows and answers owner-count
// queries used to enforce the owner-protection invariant (§4.7, §5).
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	GetByOrgAndUser(ctx context.Context, orgID, userID ulid.ULID) (*Membership, error)
	Update(ctx context.Context, m *Membership) error
	Delete(ctx context.Context, orgID, userID ulid.ULID) error
	ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*Membership, error)
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Membership, error)
	// CountOwners must be callable inside the same transaction as a pending
	// mutation so the owner-protection check and the mutation are atomic
	// (§5 "must be performed inside the same transaction... TOCTOU").
	CountOwners(ctx context.Context, orgID ulid.ULID) (int, error)
}

// ProjectRepository persists Project rows. List excludes soft-deleted rows.
type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id ulid.ULID) (*Project, error)
	Update(ctx context.Context, p *Project) error
	SoftDelete(ctx context.Context, id ulid.ULID) error
	ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*Project, error)
	// ExistsByOrgAndName checks the partial-unique-index constraint
	// (projects(orgId, name) where deletedAt is null) before insert/rename.
	ExistsByOrgAndName(ctx context.Context, orgID ulid.ULID, name string, excludeID *ulid.ULID) (bool, error)
}

// APIKeyRepository persists APIKey rows.
type APIKeyRepository interface {
	Create(ctx context.Context, k *APIKey) error
	GetByID(ctx context.Context, id ulid.ULID) (*APIKey, error)
	GetByKeyHash(ctx context.Context, keyHash string) (*APIKey, error)
	Delete(ctx context.Context, id ulid.ULID) error
	ListByProject(ctx context.Context, projectID ulid.ULID) ([]*APIKey, error)
	// TouchLastUsed is best-effort; callers must not block the ingestion
	// critical path on it (§3.1, §5).
	TouchLastUsed(ctx context.Context, id ulid.ULID, at time.Time) error
}

// InvitationRepository persists Invitation rows.
type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id ulid.ULID) (*Invitation, error)
	GetByOrgAndEmail(ctx context.Context, orgID ulid.ULID, email string) (*Invitation, error)
	Update(ctx context.Context, inv *Invitation) error
	ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*Invitation, error)
}

// RepositoryFactory provides transaction-scoped repositories, matching the
// donor's dependency-inversion pattern so core services never import the
// infrastructure layer directly (common/transaction.go).
type RepositoryFactory interface {
	Users() UserRepository
	Organizations() OrganizationRepository
	Memberships() MembershipRepository
	Projects() ProjectRepository
	APIKeys() APIKeyRepository
	Invitations() InvitationRepository
}

// TransactionManager runs a function within a single relational transaction,
// passing it a transaction-scoped RepositoryFactory. Used for every mutation
// that must be atomic, in particular owner-protection checks (§5).
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos RepositoryFactory) error) error
}
