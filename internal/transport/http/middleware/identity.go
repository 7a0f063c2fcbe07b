package middleware

import (
	"github.com/gin-gonic/gin"

	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/pkg/response"
	"brokle/pkg/ulid"
)

const (
	userIDContextKey = "user_id"
)

// UserID reads the resolved user id set by RequireIdentity.
func UserID(c *gin.Context) ulid.ULID {
	id, _ := c.Get(userIDContextKey)
	uid, _ := id.(ulid.ULID)
	return uid
}

// RequireIdentity resolves the caller's identity from the x-user-id,
// x-user-email, x-user-name headers supplied by the out-of-scope identity
// provider (§4.7, §6.5) and upserts the corresponding user row. Missing or
// malformed x-user-id is Unauthorized.
func RequireIdentity(svc *tenancyservice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader("X-User-Id")
		if rawID == "" {
			response.Unauthorized(c, "missing x-user-id header")
			c.Abort()
			return
		}

		userID, err := ulid.Parse(rawID)
		if err != nil {
			response.Unauthorized(c, "invalid x-user-id header")
			c.Abort()
			return
		}

		email := c.GetHeader("X-User-Email")
		displayName := c.GetHeader("X-User-Name")

		user, err := svc.UpsertUser(c.Request.Context(), userID, email, displayName)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(userIDContextKey, user.ID)
		c.Next()
	}
}
