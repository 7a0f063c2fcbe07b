package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	coretrace "brokle/internal/core/domain/trace"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/transport/http/middleware"
	"brokle/pkg/response"
	"brokle/pkg/ulid"
)

const (
	defaultTraceLimit = 50
	maxTraceLimit     = 100
)

// TraceHandler answers the trace read API (§4.8): listing and single-trace
// fetch, both scoped to a project the caller is a member of.
type TraceHandler struct {
	tenancy *tenancyservice.Service
	store   coretrace.Store
}

func NewTraceHandler(tenancy *tenancyservice.Service, store coretrace.Store) *TraceHandler {
	return &TraceHandler{tenancy: tenancy, store: store}
}

// List handles GET /projects/:projectId/traces?page=&limit=&name=.
// @Summary List traces for a project
// @Description Paginated, aggregated trace listing with FINAL-deduplicated reads
// @Tags Traces
// @Produce json
// @Param projectId path string true "Project ID"
// @Param page query int false "Page number, 0-indexed"
// @Param limit query int false "Page size, 1-100" default(50)
// @Param name query string false "Case-insensitive substring match on trace name"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /projects/{projectId}/traces [get]
func (h *TraceHandler) List(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	if _, _, err := h.tenancy.RequireProjectAccess(c.Request.Context(), projectID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	page := 0
	if raw := c.Query("page"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p >= 0 {
			page = p
		}
	}
	limit := defaultTraceLimit
	if raw := c.Query("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l >= 1 && l <= maxTraceLimit {
			limit = l
		}
	}

	filter := coretrace.ListFilter{
		ProjectID: projectID.String(),
		Name:      c.Query("name"),
		Page:      page,
		Limit:     limit,
	}

	items, total, err := h.store.ListTraces(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, items, &response.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pagesOf(total, limit),
		HasNext:    int64(page+1)*int64(limit) < total,
		HasPrev:    page > 0,
	})
}

// Get handles GET /projects/:projectId/traces/:traceId.
// @Summary Get a single trace with its spans
// @Tags Traces
// @Produce json
// @Param projectId path string true "Project ID"
// @Param traceId path string true "Trace ID (32-char lowercase hex)"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /projects/{projectId}/traces/{traceId} [get]
func (h *TraceHandler) Get(c *gin.Context) {
	projectID, err := ulid.Parse(c.Param("projectId"))
	if err != nil {
		response.BadRequest(c, "invalid project id", err.Error())
		return
	}

	if _, _, err := h.tenancy.RequireProjectAccess(c.Request.Context(), projectID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	detail, err := h.store.GetTrace(c.Request.Context(), projectID.String(), c.Param("traceId"))
	if err != nil {
		if errors.Is(err, coretrace.ErrTraceNotFound) {
			response.NotFound(c, "trace")
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

func pagesOf(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := int(total) / limit
	if int(total)%limit > 0 {
		pages++
	}
	return pages
}
