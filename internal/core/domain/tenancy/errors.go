package tenancy

import "errors"

// Sentinel errors returned by the tenancy service layer, wrapped into
// pkg/errors.AppError at the transport boundary.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrNotAMember           = errors.New("user is not a member of this organization")
	ErrInsufficientRole     = errors.New("insufficient role for this operation")
	ErrDuplicateProjectName = errors.New("a project with this name already exists in the organization")
	ErrLastOwner            = errors.New("operation would leave the organization with no owner")
	ErrAPIKeyExpired        = errors.New("api key has expired")
)
