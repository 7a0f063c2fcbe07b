package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/pkg/response"
	"brokle/pkg/ulid"
)

const (
	projectIDContextKey = "ingest_project_id"
	apiKeyIDContextKey  = "ingest_api_key_id"
)

// IngestProjectID reads the project id resolved by RequireAPIKey.
func IngestProjectID(c *gin.Context) ulid.ULID {
	id, _ := c.Get(projectIDContextKey)
	pid, _ := id.(ulid.ULID)
	return pid
}

// RequireAPIKey authenticates the ingestion endpoint via `Authorization:
// Bearer <apiKey>` (§4.5). It resolves only a projectId, never a user
// (§4.7 "does not resolve a user"). TouchLastUsed runs in a goroutine so the
// critical path is never blocked by it (§3.1, §5).
func RequireAPIKey(svc *tenancyservice.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "bearer "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		token := header[len(prefix):]

		projectID, keyID, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(projectIDContextKey, projectID)
		c.Set(apiKeyIDContextKey, keyID)

		go svc.TouchLastUsed(context.Background(), keyID)

		c.Next()
	}
}
