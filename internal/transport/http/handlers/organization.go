package handlers

import (
	"github.com/gin-gonic/gin"

	"brokle/internal/core/domain/tenancy"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/transport/http/middleware"
	"brokle/pkg/response"
	"brokle/pkg/ulid"
)

// OrganizationHandler exposes organization and membership management
// (§6.2). Every route is gated by middleware.RequireIdentity.
type OrganizationHandler struct {
	svc *tenancyservice.Service
}

func NewOrganizationHandler(svc *tenancyservice.Service) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

// Create handles POST /organizations. The caller becomes the sole OWNER.
// @Summary Create an organization
// @Description Creates an organization with the caller as its sole OWNER
// @Tags Organizations
// @Accept json
// @Produce json
// @Param request body tenancy.CreateOrganizationRequest true "Organization name"
// @Success 201 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Router /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req tenancy.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	org, err := h.svc.CreateOrganization(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// List handles GET /organizations: every organization the caller belongs
// to, alongside the caller's role in each.
// @Summary List the caller's organizations
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	views, err := h.svc.ListOrganizationsForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, views)
}

// Update handles PATCH /organizations/:orgId (>= ADMIN).
func (h *OrganizationHandler) Update(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id", err.Error())
		return
	}

	var req tenancy.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	org, err := h.svc.UpdateOrganization(c.Request.Context(), orgID, middleware.UserID(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, org)
}

// Delete handles DELETE /organizations/:orgId (OWNER only).
func (h *OrganizationHandler) Delete(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id", err.Error())
		return
	}

	if err := h.svc.DeleteOrganization(c.Request.Context(), orgID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddMember handles POST /organizations/:orgId/members (>= ADMIN).
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id", err.Error())
		return
	}

	var req tenancy.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	m, err := h.svc.AddMember(c.Request.Context(), orgID, middleware.UserID(c), req.UserID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// UpdateMemberRole handles PATCH /organizations/:orgId/members/:userId
// (>= ADMIN, subject to the owner-protection invariant).
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id", err.Error())
		return
	}
	targetID, err := ulid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id", err.Error())
		return
	}

	var req tenancy.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	if err := h.svc.UpdateMemberRole(c.Request.Context(), orgID, middleware.UserID(c), targetID, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveMember handles DELETE /organizations/:orgId/members/:userId
// (>= ADMIN, subject to the owner-protection invariant).
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id", err.Error())
		return
	}
	targetID, err := ulid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id", err.Error())
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), orgID, middleware.UserID(c), targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
