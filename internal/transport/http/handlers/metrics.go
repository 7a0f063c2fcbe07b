package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the process's Prometheus registry. Business metrics
// (ingestion/worker counters) register themselves at package init time in
// internal/observability/metrics; this handler only serves the scrape
// endpoint (logging/metrics export is out of scope per spec §1, but the
// ambient-stack edge still needs to exist).
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Get handles GET /metrics.
// @Summary Get Prometheus metrics
// @Description Retrieve Prometheus-compatible metrics for monitoring
// @Tags Monitoring
// @Produce text/plain
// @Success 200 {string} string "Prometheus metrics in text format"
// @Router /metrics [get]
func (h *MetricsHandler) Get(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
