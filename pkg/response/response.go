package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "brokle/pkg/errors"
	"brokle/pkg/pagination"
)

// APIResponse is the standard envelope for every handler response.
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Success bool        `json:"success"`
}

// APIError carries error information in API responses.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Type    string `json:"type,omitempty"`
}

// Pagination is offset-based pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Meta carries response metadata: request tracking and pagination.
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
	Version    string      `json:"version,omitempty"`
}

// Success returns a 200 response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: getMeta(c)})
}

// SuccessWithPagination returns a 200 response with pagination metadata.
func SuccessWithPagination(c *gin.Context, data interface{}, pag *Pagination) {
	meta := getMeta(c)
	meta.Pagination = pag
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// Created returns a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data, Meta: getMeta(c)})
}

// Accepted returns a 202 response.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data, Meta: getMeta(c)})
}

// NoContent returns a 204 response. Per RFC 7231 §6.3.5 it carries no body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error renders an AppError (or a generic internal error for anything else)
// as the standard error envelope. Non-AppError causes are never echoed to
// the client — only logged by the caller.
func Error(c *gin.Context, err error) {
	var statusCode int
	var apiError *APIError

	if appErr, ok := appErrors.IsAppError(err); ok {
		statusCode = appErr.StatusCode
		apiError = &APIError{
			Code:    string(appErr.Type),
			Message: appErr.Message,
			Details: appErr.Details,
			Type:    string(appErr.Type),
		}
	} else {
		statusCode = http.StatusInternalServerError
		apiError = &APIError{
			Code:    string(appErrors.InternalError),
			Message: "Internal server error",
			Type:    string(appErrors.InternalError),
		}
	}

	c.JSON(statusCode, APIResponse{Success: false, Error: apiError, Meta: getMeta(c)})
}

// ErrorWithStatus returns an error response with an explicit status code.
func ErrorWithStatus(c *gin.Context, statusCode int, code, message, details string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Details: details},
		Meta:    getMeta(c),
	})
}

func BadRequest(c *gin.Context, message, details string) {
	ErrorWithStatus(c, http.StatusBadRequest, string(appErrors.BadRequestError), message, details)
}

func NotFound(c *gin.Context, resource string) {
	ErrorWithStatus(c, http.StatusNotFound, string(appErrors.NotFoundError), resource+" not found", "")
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	ErrorWithStatus(c, http.StatusUnauthorized, string(appErrors.UnauthorizedError), message, "")
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access forbidden"
	}
	ErrorWithStatus(c, http.StatusForbidden, string(appErrors.ForbiddenError), message, "")
}

func Conflict(c *gin.Context, message string) {
	ErrorWithStatus(c, http.StatusConflict, string(appErrors.ConflictError), message, "")
}

func ValidationError(c *gin.Context, message, details string) {
	ErrorWithStatus(c, http.StatusBadRequest, string(appErrors.ValidationError), message, details)
}

func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorWithStatus(c, http.StatusInternalServerError, string(appErrors.InternalError), message, "")
}

func RateLimit(c *gin.Context, message string) {
	if message == "" {
		message = "Rate limit exceeded"
	}
	ErrorWithStatus(c, http.StatusTooManyRequests, string(appErrors.RateLimitError), message, "")
}

func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	ErrorWithStatus(c, http.StatusServiceUnavailable, string(appErrors.ServiceUnavailable), message, "")
}

// NewPagination builds offset pagination metadata, clamping limit to a valid
// page size and deriving total_pages/has_next/has_prev.
func NewPagination(page, limit int, total int64) *Pagination {
	if !pagination.IsValidPageSize(limit) {
		limit = pagination.DefaultPageSize
	}

	totalPages := pagination.CalculateTotalPages(total, limit)

	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ParsePaginationParams parses offset pagination query parameters, clamping
// to safe values rather than rejecting the request.
func ParsePaginationParams(page, limit, sortBy, sortDir string) pagination.Params {
	params := pagination.Params{
		Page:    1,
		Limit:   50,
		SortBy:  "",
		SortDir: "desc",
	}

	if page != "" {
		if p, err := strconv.Atoi(page); err == nil && p >= 1 {
			params.Page = p
		}
	}

	if limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && pagination.IsValidPageSize(l) {
			params.Limit = l
		}
	}

	if sortBy != "" {
		params.SortBy = sortBy
	}

	if sortDir == "asc" || sortDir == "desc" {
		params.SortDir = sortDir
	}

	if err := params.Validate(); err != nil {
		if params.GetOffset() > pagination.MaxOffset {
			params.Page = pagination.MaxOffset / params.Limit
		}
		if params.Page < 1 {
			params.Page = 1
		}
	}

	return params
}

func getMeta(c *gin.Context) *Meta {
	meta := &Meta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "v1",
	}

	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			meta.RequestID = id
		}
	}

	return meta
}
