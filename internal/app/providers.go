package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"brokle/internal/config"
	"brokle/internal/infrastructure/blobstore"
	"brokle/internal/infrastructure/clickhouse"
	"brokle/internal/infrastructure/postgres"
	"brokle/internal/infrastructure/queue"
	"brokle/internal/transport/http"
	"brokle/internal/transport/http/handlers"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/workers"
)

// DeploymentMode distinguishes the HTTP-serving process from the
// background-transform process; both share the Core container (§5, §9).
type DeploymentMode string

const (
	ModeServer DeploymentMode = "server"
	ModeWorker DeploymentMode = "worker"
)

// CoreContainer holds every dependency shared by both deployment modes:
// configuration, the shared logger, and the infrastructure connections.
type CoreContainer struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Postgres *postgres.DB
	ClickHouse *clickhouse.Store
	Blobs    *blobstore.Client
	Queue    *queue.Conn
	Tenancy  *tenancyservice.Service
	APIKey   *tenancyservice.APIKeyService
}

// ServerContainer holds the components only the HTTP-serving process needs.
type ServerContainer struct {
	HTTPServer *http.Server
}

// WorkerContainer holds the components only the background process needs.
type WorkerContainer struct {
	Transform *workers.TransformWorker
}

// ProviderContainer is the full dependency graph for one process, scoped to
// whichever of Server/Workers applies to its Mode.
type ProviderContainer struct {
	Core    *CoreContainer
	Server  *ServerContainer
	Workers *WorkerContainer
	Mode    DeploymentMode
}

// ProvideCore builds every infrastructure connection and the tenancy
// service layer shared by both deployment modes.
func ProvideCore(cfg *config.Config, logger *logrus.Logger) (*CoreContainer, error) {
	db, err := postgres.Connect(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	chStore, err := clickhouse.Connect(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}

	blobs, err := blobstore.Connect(context.Background(), &cfg.BlobStorage, logger)
	if err != nil {
		return nil, fmt.Errorf("connect blob store: %w", err)
	}

	queueConn, err := queue.Connect(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	repos := postgres.NewRepositoryFactory(db.Gorm)
	txManager := postgres.NewTransactionManager(db.Gorm)
	tenancySvc := tenancyservice.NewService(repos, txManager, logger)
	apiKeySvc := tenancyservice.NewAPIKeyService(repos, logger)

	return &CoreContainer{
		Config:     cfg,
		Logger:     logger,
		Postgres:   db,
		ClickHouse: chStore,
		Blobs:      blobs,
		Queue:      queueConn,
		Tenancy:    tenancySvc,
		APIKey:     apiKeySvc,
	}, nil
}

// ProvideServer builds the HTTP transport over an already-built core.
func ProvideServer(core *CoreContainer) (*ServerContainer, error) {
	producer := queue.NewProducer(core.Queue, core.Logger)

	h := handlers.NewHandlers(core.Tenancy, core.APIKey, core.Blobs, producer, core.ClickHouse, core.Config.Server.MaxRequestSize, core.Logger)
	srv := http.NewServer(core.Config, core.Logger, h, core.Tenancy, core.APIKey)

	return &ServerContainer{HTTPServer: srv}, nil
}

// ProvideWorkers builds the background transform worker over an
// already-built core.
func ProvideWorkers(core *CoreContainer) (*WorkerContainer, error) {
	transform := workers.NewTransformWorker(core.Queue, core.Blobs, core.ClickHouse, core.Logger)
	return &WorkerContainer{Transform: transform}, nil
}

// Shutdown closes every infrastructure connection in the core container.
func (c *CoreContainer) Shutdown() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.Postgres != nil {
		record(c.Postgres.Close())
	}
	if c.ClickHouse != nil {
		record(c.ClickHouse.Close())
	}
	if c.Queue != nil {
		record(c.Queue.Close())
	}

	return firstErr
}

// HealthCheck reports a coarse status string per dependency, used by the
// process-level health surface.
func (c *CoreContainer) HealthCheck() map[string]string {
	status := map[string]string{
		"postgres":   "unknown",
		"clickhouse": "unknown",
		"redis":      "unknown",
	}
	if c.Postgres != nil {
		if err := c.Postgres.SqlDB.Ping(); err != nil {
			status["postgres"] = "unhealthy: " + err.Error()
		} else {
			status["postgres"] = "healthy"
		}
	}
	if c.Queue != nil {
		if err := c.Queue.Client.Ping(context.Background()).Err(); err != nil {
			status["redis"] = "unhealthy: " + err.Error()
		} else {
			status["redis"] = "healthy"
		}
	}
	if c.ClickHouse != nil {
		status["clickhouse"] = "healthy"
	}
	return status
}
