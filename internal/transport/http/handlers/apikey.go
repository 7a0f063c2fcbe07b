package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"brokle/internal/core/domain/tenancy"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/transport/http/middleware"
	apperrors "brokle/pkg/errors"
	"brokle/pkg/response"
	"brokle/pkg/ulid"
)

// APIKeyHandler issues and revokes project-scoped API keys used by the
// ingestion endpoint (§6.2, §6.4).
type APIKeyHandler struct {
	svc    *tenancyservice.Service
	apiKey *tenancyservice.APIKeyService
}

func NewAPIKeyHandler(svc *tenancyservice.Service, apiKey *tenancyservice.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{svc: svc, apiKey: apiKey}
}

// requireProjectAdmin resolves projectID to its organization and enforces
// >= ADMIN, for use as the CreateAPIKey role-check callback.
func (h *APIKeyHandler) requireProjectAdmin(ctx context.Context, projectID, actorID ulid.ULID) error {
	_, membership, err := h.svc.RequireProjectAccess(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	if membership.Role < tenancy.RoleAdmin {
		return apperrors.NewForbiddenError("insufficient role for this operation")
	}
	return nil
}

// Create handles POST /projects/:projectId/api-keys (>= ADMIN). The
// plaintext key is returned exactly once, in this response.
func (h *APIKeyHandler) Create(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	var req tenancy.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request payload", err.Error())
		return
	}

	key, err := h.apiKey.CreateAPIKey(c.Request.Context(), projectID, middleware.UserID(c), req.Name, req.ExpiresAt, h.requireProjectAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, key)
}

// List handles GET /projects/:projectId/api-keys. Membership on the
// project's org is sufficient; the plaintext key and hash are never
// returned.
func (h *APIKeyHandler) List(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	if _, _, err := h.svc.RequireProjectAccess(c.Request.Context(), projectID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	keys, err := h.apiKey.ListAPIKeys(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, keys)
}

// Delete handles DELETE /projects/:projectId/api-keys/:keyId (>= ADMIN).
func (h *APIKeyHandler) Delete(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}
	keyID, err := ulid.Parse(c.Param("keyId"))
	if err != nil {
		response.BadRequest(c, "invalid api key id", err.Error())
		return
	}

	if err := h.requireProjectAdmin(c.Request.Context(), projectID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.apiKey.DeleteAPIKey(c.Request.Context(), keyID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
