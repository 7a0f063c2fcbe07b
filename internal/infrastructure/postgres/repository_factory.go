package postgres

import (
	"gorm.io/gorm"

	"brokle/internal/core/domain/tenancy"
)

// repositoryFactory implements tenancy.RepositoryFactory, lazily building and
// caching one repository instance per concern for a given db handle (which is
// either the ambient *gorm.DB or a transaction handle) (§9 "explicit
// construction").
type repositoryFactory struct {
	db *gorm.DB

	userRepo         tenancy.UserRepository
	organizationRepo tenancy.OrganizationRepository
	membershipRepo   tenancy.MembershipRepository
	projectRepo      tenancy.ProjectRepository
	apiKeyRepo       tenancy.APIKeyRepository
	invitationRepo   tenancy.InvitationRepository
}

func NewRepositoryFactory(db *gorm.DB) tenancy.RepositoryFactory {
	return &repositoryFactory{db: db}
}

func (f *repositoryFactory) Users() tenancy.UserRepository {
	if f.userRepo == nil {
		f.userRepo = NewUserRepository(f.db)
	}
	return f.userRepo
}

func (f *repositoryFactory) Organizations() tenancy.OrganizationRepository {
	if f.organizationRepo == nil {
		f.organizationRepo = NewOrganizationRepository(f.db)
	}
	return f.organizationRepo
}

func (f *repositoryFactory) Memberships() tenancy.MembershipRepository {
	if f.membershipRepo == nil {
		f.membershipRepo = NewMembershipRepository(f.db)
	}
	return f.membershipRepo
}

func (f *repositoryFactory) Projects() tenancy.ProjectRepository {
	if f.projectRepo == nil {
		f.projectRepo = NewProjectRepository(f.db)
	}
	return f.projectRepo
}

func (f *repositoryFactory) APIKeys() tenancy.APIKeyRepository {
	if f.apiKeyRepo == nil {
		f.apiKeyRepo = NewAPIKeyRepository(f.db)
	}
	return f.apiKeyRepo
}

func (f *repositoryFactory) Invitations() tenancy.InvitationRepository {
	if f.invitationRepo == nil {
		f.invitationRepo = NewInvitationRepository(f.db)
	}
	return f.invitationRepo
}
