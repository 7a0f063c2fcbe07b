package handlers

import (
	"github.com/gin-gonic/gin"

	"brokle/internal/version"
	"brokle/pkg/response"
)

// HealthHandler answers unauthenticated liveness checks (§6.2).
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok", "version": version.Get()})
}
