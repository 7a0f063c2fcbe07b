// Package tenancy holds the relational tenancy model: users, organizations,
// memberships, projects, API keys, and invitations (§3.1).
package tenancy

import (
	"time"

	"gorm.io/gorm"

	"brokle/pkg/ulid"
)

// RoleLevel is the numeric membership role, compared with >= (§4.7).
type RoleLevel int

const (
	RoleViewer RoleLevel = 1
	RoleMember RoleLevel = 2
	RoleAdmin  RoleLevel = 3
	RoleOwner  RoleLevel = 4
)

// ParseRoleLevel converts a role name to its numeric level. Unknown names
// return (0, false) so callers can reject them as a validation error.
func ParseRoleLevel(name string) (RoleLevel, bool) {
	switch name {
	case "OWNER":
		return RoleOwner, true
	case "ADMIN":
		return RoleAdmin, true
	case "MEMBER":
		return RoleMember, true
	case "VIEWER":
		return RoleViewer, true
	default:
		return 0, false
	}
}

func (r RoleLevel) String() string {
	switch r {
	case RoleOwner:
		return "OWNER"
	case RoleAdmin:
		return "ADMIN"
	case RoleMember:
		return "MEMBER"
	case RoleViewer:
		return "VIEWER"
	default:
		return "UNKNOWN"
	}
}

// User is created on first authenticated request; upsertUser is idempotent
// by id only, and email is not used to find an existing user (§3.1). Users
// are never deleted.
type User struct {
	ID          ulid.ULID `json:"id" gorm:"type:char(26);primaryKey"`
	Email       string    `json:"email,omitempty" gorm:"size:255;uniqueIndex"`
	DisplayName string    `json:"display_name,omitempty" gorm:"size:255"`
	IsAdmin     bool      `json:"is_admin" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Organization owns projects and memberships. Hard-deleting one cascades to
// memberships, projects (and their API keys), and pending invitations (§3.1).
type Organization struct {
	ID        ulid.ULID `json:"id" gorm:"type:char(26);primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

func NewOrganization(name string) *Organization {
	now := time.Now()
	return &Organization{ID: ulid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
}

// Membership ties a user to an organization at a role level. (orgId, userId)
// is unique. Every organization must retain >= 1 OWNER at all times (§3.1,
// §4.7); that invariant is enforced by the service layer inside a
// transaction, not by the schema.
type Membership struct {
	ID        ulid.ULID `json:"id" gorm:"type:char(26);primaryKey"`
	OrgID     ulid.ULID `json:"org_id" gorm:"type:char(26);not null;uniqueIndex:idx_org_user"`
	UserID    ulid.ULID `json:"user_id" gorm:"type:char(26);not null;uniqueIndex:idx_org_user"`
	Role      RoleLevel `json:"role" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Membership) TableName() string { return "memberships" }

func NewMembership(orgID, userID ulid.ULID, role RoleLevel) *Membership {
	now := time.Now()
	return &Membership{ID: ulid.New(), OrgID: orgID, UserID: userID, Role: role, CreatedAt: now, UpdatedAt: now}
}

// Project owns API keys and is the tenant-scoping unit for ingestion and
// trace reads. Soft-deletable; name is unique among non-deleted projects
// within an organization (§3.1).
type Project struct {
	ID             ulid.ULID      `json:"id" gorm:"type:char(26);primaryKey"`
	OrgID          ulid.ULID      `json:"org_id" gorm:"type:char(26);not null;index"`
	Name           string         `json:"name" gorm:"size:255;not null"`
	RetentionDays  *int           `json:"retention_days,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (Project) TableName() string { return "projects" }

func NewProject(orgID ulid.ULID, name string, retentionDays *int) *Project {
	now := time.Now()
	return &Project{ID: ulid.New(), OrgID: orgID, Name: name, RetentionDays: retentionDays, CreatedAt: now, UpdatedAt: now}
}

// APIKey scopes ingestion to a single project. Only KeyHash and KeyPrefix are
// persisted; the plaintext key is returned exactly once, at creation (§3.1,
// §6.4).
type APIKey struct {
	ID         ulid.ULID  `json:"id" gorm:"type:char(26);primaryKey"`
	ProjectID  ulid.ULID  `json:"project_id" gorm:"type:char(26);not null;index"`
	KeyHash    string     `json:"-" gorm:"size:64;not null;uniqueIndex"`
	KeyPrefix  string     `json:"key_prefix" gorm:"size:16;not null"`
	Name       string     `json:"name,omitempty" gorm:"size:255"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// IsExpired reports whether the key can no longer authenticate (§4.9).
func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}

// InvitationStatus is the lifecycle state of an Invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusExpired  InvitationStatus = "expired"
	InvitationStatusRevoked  InvitationStatus = "revoked"
)

// Invitation represents a pending invite to join an organization at a role.
// (email, orgId) is unique (§3.1).
type Invitation struct {
	ID          ulid.ULID        `json:"id" gorm:"type:char(26);primaryKey"`
	OrgID       ulid.ULID        `json:"org_id" gorm:"type:char(26);not null;uniqueIndex:idx_org_email"`
	Email       string           `json:"email" gorm:"size:255;not null;uniqueIndex:idx_org_email"`
	Role        RoleLevel        `json:"role" gorm:"not null"`
	InvitedByID *ulid.ULID       `json:"invited_by_id,omitempty" gorm:"type:char(26)"`
	Status      InvitationStatus `json:"status" gorm:"size:20;default:'pending'"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Invitation) TableName() string { return "invitations" }

func (i *Invitation) IsExpired() bool {
	// Invitations are valid for 7 days from creation; there is no separate
	// ExpiresAt column in the relational schema (§3.1 lists none), so the
	// window is derived from CreatedAt.
	return time.Now().After(i.CreatedAt.Add(7 * 24 * time.Hour))
}

func (i *Invitation) IsValid() bool {
	return i.Status == InvitationStatusPending && !i.IsExpired()
}

func (i *Invitation) Accept() {
	i.Status = InvitationStatusAccepted
	i.UpdatedAt = time.Now()
}

func (i *Invitation) Revoke() {
	i.Status = InvitationStatusRevoked
	i.UpdatedAt = time.Now()
}

// Request/response DTOs, validated via gin's binding tags at bind time.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

type UpdateOrganizationRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
}

type CreateProjectRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=100"`
	RetentionDays *int   `json:"retention_days,omitempty" binding:"omitempty,min=1"`
}

type UpdateProjectRequest struct {
	Name          *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	RetentionDays *int    `json:"retention_days,omitempty" binding:"omitempty,min=1"`
}

type AddMemberRequest struct {
	UserID ulid.ULID `json:"user_id" binding:"required"`
	Role   string    `json:"role" binding:"required,oneof=ADMIN MEMBER VIEWER"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

type CreateAPIKeyRequest struct {
	Name      string     `json:"name,omitempty" binding:"max=255"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse is the only response that ever carries the plaintext
// key (§3.1, §6.2).
type CreateAPIKeyResponse struct {
	ID        ulid.ULID  `json:"id"`
	Key       string     `json:"key"`
	KeyPrefix string     `json:"key_prefix"`
	Name      string     `json:"name,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type MembershipView struct {
	OrgID ulid.ULID `json:"org_id"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}
