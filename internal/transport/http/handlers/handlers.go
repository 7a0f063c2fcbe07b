package handlers

import (
	coretrace "brokle/internal/core/domain/trace"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/infrastructure/blobstore"
	"brokle/internal/infrastructure/queue"

	"github.com/sirupsen/logrus"
)

// Handlers bundles every HTTP handler wired into the server (§6.2).
type Handlers struct {
	Health       *HealthHandler
	Metrics      *MetricsHandler
	Ingest       *IngestHandler
	Organization *OrganizationHandler
	Project      *ProjectHandler
	APIKey       *APIKeyHandler
	Trace        *TraceHandler
}

func NewHandlers(
	tenancy *tenancyservice.Service,
	apiKey *tenancyservice.APIKeyService,
	blobs *blobstore.Client,
	producer *queue.Producer,
	traceStore coretrace.Store,
	maxRequestSize int64,
	logger *logrus.Logger,
) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Metrics:      NewMetricsHandler(),
		Ingest:       NewIngestHandler(blobs, producer, maxRequestSize, logger),
		Organization: NewOrganizationHandler(tenancy),
		Project:      NewProjectHandler(tenancy),
		APIKey:       NewAPIKeyHandler(tenancy, apiKey),
		Trace:        NewTraceHandler(tenancy, traceStore),
	}
}
