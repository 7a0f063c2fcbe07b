package handlers

import (
	"github.com/gin-gonic/gin"

	"brokle/internal/core/domain/tenancy"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/transport/http/middleware"
	"brokle/pkg/response"
	"brokle/pkg/ulid"
)

// ProjectHandler exposes project management within an organization (§6.2).
type ProjectHandler struct {
	svc *tenancyservice.Service
}

func NewProjectHandler(svc *tenancyservice.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// Create handles POST /organizations/:orgId/projects (>= ADMIN).
func (h *ProjectHandler) Create(c *gin.Context) {
	orgID, err := ulid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id", err.Error())
		return
	}

	var req tenancy.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), orgID, middleware.UserID(c), req.Name, req.RetentionDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Get handles GET /projects/:projectId (membership on the owning org).
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	project, _, err := h.svc.RequireProjectAccess(c.Request.Context(), projectID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Update handles PATCH /projects/:projectId (>= ADMIN on the owning org).
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	var req tenancy.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	project, err := h.svc.UpdateProject(c.Request.Context(), projectID, middleware.UserID(c), req.Name, req.RetentionDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Delete handles DELETE /projects/:projectId (>= ADMIN on the owning org).
func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	if err := h.svc.DeleteProject(c.Request.Context(), projectID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
