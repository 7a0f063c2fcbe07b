// Package middleware holds gin middleware for request tracing, recovery,
// logging, user-identity resolution, and API-key authentication.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"brokle/internal/observability/metrics"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns a request id (from the incoming header if present) and
// attaches it to the gin context so handlers and response envelopes can
// surface it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Logger emits one structured log line per request.
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		}).Info("http request")
	}
}

// Metrics records per-request counters and latency histograms keyed by the
// matched route template (not the raw path, to keep cardinality bounded).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Recovery converts a panic into a 500 response instead of crashing the
// process, logging the stack for operator inspection.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"request_id": c.GetString("request_id"),
					"panic":      r,
					"path":       c.Request.URL.Path,
				}).Error("panic recovered in http handler")
				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}
