package tenancy

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokle/internal/core/domain/tenancy"
	apperrors "brokle/pkg/errors"
	"brokle/pkg/ulid"
)

// fakeRepos is an in-memory RepositoryFactory/TransactionManager used to
// exercise the owner-protection invariant and role gates without a database.
type fakeRepos struct {
	orgs        map[ulid.ULID]*tenancy.Organization
	memberships map[string]*tenancy.Membership
	projects    map[ulid.ULID]*tenancy.Project
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		orgs:        make(map[ulid.ULID]*tenancy.Organization),
		memberships: make(map[string]*tenancy.Membership),
		projects:    make(map[ulid.ULID]*tenancy.Project),
	}
}

func membershipKey(orgID, userID ulid.ULID) string { return orgID.String() + ":" + userID.String() }

func (f *fakeRepos) Users() tenancy.UserRepository               { return nil }
func (f *fakeRepos) Organizations() tenancy.OrganizationRepository { return &fakeOrgRepo{f} }
func (f *fakeRepos) Memberships() tenancy.MembershipRepository   { return &fakeMembershipRepo{f} }
func (f *fakeRepos) Projects() tenancy.ProjectRepository         { return &fakeProjectRepo{f} }
func (f *fakeRepos) APIKeys() tenancy.APIKeyRepository           { return nil }
func (f *fakeRepos) Invitations() tenancy.InvitationRepository   { return nil }

// WithTransaction runs fn against the same in-memory maps; there is no
// rollback, which these tests do not need because every rejection they
// exercise happens before any write.
func (f *fakeRepos) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos tenancy.RepositoryFactory) error) error {
	return fn(ctx, f)
}

type fakeOrgRepo struct{ f *fakeRepos }

func (r *fakeOrgRepo) Create(ctx context.Context, org *tenancy.Organization) error {
	r.f.orgs[org.ID] = org
	return nil
}
func (r *fakeOrgRepo) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.Organization, error) {
	org, ok := r.f.orgs[id]
	if !ok {
		return nil, tenancy.ErrOrganizationNotFound
	}
	return org, nil
}
func (r *fakeOrgRepo) Update(ctx context.Context, org *tenancy.Organization) error {
	r.f.orgs[org.ID] = org
	return nil
}
func (r *fakeOrgRepo) Delete(ctx context.Context, id ulid.ULID) error {
	delete(r.f.orgs, id)
	return nil
}
func (r *fakeOrgRepo) ListForUser(ctx context.Context, userID ulid.ULID) ([]*tenancy.Organization, error) {
	return nil, nil
}

type fakeMembershipRepo struct{ f *fakeRepos }

func (r *fakeMembershipRepo) Create(ctx context.Context, m *tenancy.Membership) error {
	r.f.memberships[membershipKey(m.OrgID, m.UserID)] = m
	return nil
}
func (r *fakeMembershipRepo) GetByOrgAndUser(ctx context.Context, orgID, userID ulid.ULID) (*tenancy.Membership, error) {
	m, ok := r.f.memberships[membershipKey(orgID, userID)]
	if !ok {
		return nil, tenancy.ErrMembershipNotFound
	}
	return m, nil
}
func (r *fakeMembershipRepo) Update(ctx context.Context, m *tenancy.Membership) error {
	r.f.memberships[membershipKey(m.OrgID, m.UserID)] = m
	return nil
}
func (r *fakeMembershipRepo) Delete(ctx context.Context, orgID, userID ulid.ULID) error {
	delete(r.f.memberships, membershipKey(orgID, userID))
	return nil
}
func (r *fakeMembershipRepo) ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*tenancy.Membership, error) {
	var out []*tenancy.Membership
	for _, m := range r.f.memberships {
		if m.OrgID == orgID {
			out = append(out, m)
		}
	}
	return out, nil
}
func (r *fakeMembershipRepo) ListByUser(ctx context.Context, userID ulid.ULID) ([]*tenancy.Membership, error) {
	var out []*tenancy.Membership
	for _, m := range r.f.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}
func (r *fakeMembershipRepo) CountOwners(ctx context.Context, orgID ulid.ULID) (int, error) {
	count := 0
	for _, m := range r.f.memberships {
		if m.OrgID == orgID && m.Role == tenancy.RoleOwner {
			count++
		}
	}
	return count, nil
}

type fakeProjectRepo struct{ f *fakeRepos }

func (r *fakeProjectRepo) Create(ctx context.Context, p *tenancy.Project) error {
	r.f.projects[p.ID] = p
	return nil
}
func (r *fakeProjectRepo) GetByID(ctx context.Context, id ulid.ULID) (*tenancy.Project, error) {
	p, ok := r.f.projects[id]
	if !ok {
		return nil, tenancy.ErrProjectNotFound
	}
	return p, nil
}
func (r *fakeProjectRepo) Update(ctx context.Context, p *tenancy.Project) error {
	r.f.projects[p.ID] = p
	return nil
}
func (r *fakeProjectRepo) SoftDelete(ctx context.Context, id ulid.ULID) error {
	delete(r.f.projects, id)
	return nil
}
func (r *fakeProjectRepo) ListByOrg(ctx context.Context, orgID ulid.ULID) ([]*tenancy.Project, error) {
	return nil, nil
}
func (r *fakeProjectRepo) ExistsByOrgAndName(ctx context.Context, orgID ulid.ULID, name string, excludeID *ulid.ULID) (bool, error) {
	for _, p := range r.f.projects {
		if p.OrgID != orgID || p.Name != name {
			continue
		}
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		return true, nil
	}
	return false, nil
}

func newTestService() (*Service, *fakeRepos) {
	repos := newFakeRepos()
	logger := logrus.New()
	return NewService(repos, repos, logger), repos
}

func TestUpdateMemberRole_BlocksDemotingLastOwner(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, ownerID := ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	owner := tenancy.NewMembership(orgID, ownerID, tenancy.RoleOwner)
	repos.memberships[membershipKey(orgID, ownerID)] = owner

	err := svc.UpdateMemberRole(ctx, orgID, ownerID, ownerID, "ADMIN")

	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ConflictError, appErr.Type)
	assert.Equal(t, tenancy.RoleOwner, repos.memberships[membershipKey(orgID, ownerID)].Role)
}

func TestUpdateMemberRole_AllowsDemotingWhenAnotherOwnerRemains(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, ownerA, ownerB := ulid.New(), ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	repos.memberships[membershipKey(orgID, ownerA)] = tenancy.NewMembership(orgID, ownerA, tenancy.RoleOwner)
	repos.memberships[membershipKey(orgID, ownerB)] = tenancy.NewMembership(orgID, ownerB, tenancy.RoleOwner)

	err := svc.UpdateMemberRole(ctx, orgID, ownerA, ownerB, "MEMBER")

	require.NoError(t, err)
	assert.Equal(t, tenancy.RoleMember, repos.memberships[membershipKey(orgID, ownerB)].Role)
}

func TestRemoveMember_BlocksRemovingLastOwner(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, ownerID := ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	repos.memberships[membershipKey(orgID, ownerID)] = tenancy.NewMembership(orgID, ownerID, tenancy.RoleOwner)

	err := svc.RemoveMember(ctx, orgID, ownerID, ownerID)

	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ConflictError, appErr.Type)
	_, err = repos.Memberships().GetByOrgAndUser(ctx, orgID, ownerID)
	assert.NoError(t, err, "membership must still exist")
}

func TestAddMember_RejectsOwnerRole(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, adminID, newUserID := ulid.New(), ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	repos.memberships[membershipKey(orgID, adminID)] = tenancy.NewMembership(orgID, adminID, tenancy.RoleAdmin)

	_, err := svc.AddMember(ctx, orgID, adminID, newUserID, "OWNER")

	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ValidationError, appErr.Type)
}

func TestAddMember_RejectsDuplicateMembership(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, adminID, existingUserID := ulid.New(), ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	repos.memberships[membershipKey(orgID, adminID)] = tenancy.NewMembership(orgID, adminID, tenancy.RoleAdmin)
	repos.memberships[membershipKey(orgID, existingUserID)] = tenancy.NewMembership(orgID, existingUserID, tenancy.RoleMember)

	_, err := svc.AddMember(ctx, orgID, adminID, existingUserID, "VIEWER")

	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ConflictError, appErr.Type)
}

func TestRequireOrgRole_RejectsInsufficientRole(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, viewerID := ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	repos.memberships[membershipKey(orgID, viewerID)] = tenancy.NewMembership(orgID, viewerID, tenancy.RoleViewer)

	_, err := svc.RequireOrgRole(ctx, orgID, viewerID, tenancy.RoleAdmin)

	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ForbiddenError, appErr.Type)
}

func TestCreateProject_RejectsDuplicateNameInOrg(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	orgID, adminID := ulid.New(), ulid.New()
	repos.orgs[orgID] = tenancy.NewOrganization("acme")
	repos.memberships[membershipKey(orgID, adminID)] = tenancy.NewMembership(orgID, adminID, tenancy.RoleAdmin)

	_, err := svc.CreateProject(ctx, orgID, adminID, "prod", nil)
	require.NoError(t, err)

	_, err = svc.CreateProject(ctx, orgID, adminID, "prod", nil)
	require.Error(t, err)
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ConflictError, appErr.Type)
}

func TestCreateOrganization_CallerBecomesSoleOwner(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()

	userID := ulid.New()
	org, err := svc.CreateOrganization(ctx, userID, "acme")
	require.NoError(t, err)

	m, err := repos.Memberships().GetByOrgAndUser(ctx, org.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, tenancy.RoleOwner, m.Role)

	count, err := repos.Memberships().CountOwners(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
