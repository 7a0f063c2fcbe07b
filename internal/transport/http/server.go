package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"brokle/internal/config"
	tenancyservice "brokle/internal/core/services/tenancy"
	"brokle/internal/transport/http/handlers"
	"brokle/internal/transport/http/middleware"
)

// Server wraps the gin engine and the stdlib http.Server wrapping it.
type Server struct {
	config   *config.Config
	logger   *logrus.Logger
	handlers *handlers.Handlers
	tenancy  *tenancyservice.Service
	apiKey   *tenancyservice.APIKeyService
	engine   *gin.Engine
	server   *http.Server
}

func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	h *handlers.Handlers,
	tenancy *tenancyservice.Service,
	apiKey *tenancyservice.APIKeyService,
) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: h,
		tenancy:  tenancy,
		apiKey:   apiKey,
	}
}

// Start builds the gin engine, mounts every route, and blocks on
// ListenAndServe until the process is signaled to shut down (see Shutdown).
func (s *Server) Start() error {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s.engine = gin.New()

	if len(s.config.Server.CORSAllowedOrigins) == 1 && s.config.Server.CORSAllowedOrigins[0] == "*" {
		s.logger.Error("CORS misconfiguration: cannot use wildcard (*) origins with AllowCredentials")
		return errors.New("invalid CORS configuration: wildcard origins incompatible with credentials")
	}
	if len(s.config.Server.CORSAllowedOrigins) == 0 {
		s.logger.Error("CORS misconfiguration: no origins configured")
		return errors.New("invalid CORS configuration: no origins specified")
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.config.Server.CORSAllowedOrigins
	corsConfig.AllowMethods = s.config.Server.CORSAllowedMethods
	corsConfig.AllowHeaders = s.config.Server.CORSAllowedHeaders
	corsConfig.AllowCredentials = true
	s.engine.Use(cors.New(corsConfig))

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.GetServerAddress(),
		Handler:      s.engine,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithField("addr", s.server.Addr).Info("starting http server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// setupRoutes mounts every route named in §6.2: unauthenticated health and
// metrics, API-key-gated ingestion, and identity-header-gated tenancy
// management and trace reads.
func (s *Server) setupRoutes() {
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger(s.logger))
	s.engine.Use(middleware.Recovery(s.logger))
	s.engine.Use(middleware.Metrics())

	s.engine.GET("/health", s.handlers.Health.Check)
	s.engine.GET("/metrics", s.handlers.Metrics.Get)

	public := s.engine.Group("/public")
	public.Use(middleware.RequireAPIKey(s.apiKey))
	public.POST("/traces", s.handlers.Ingest.Export)

	api := s.engine.Group("")
	api.Use(middleware.RequireIdentity(s.tenancy))

	orgs := api.Group("/organizations")
	{
		orgs.POST("", s.handlers.Organization.Create)
		orgs.GET("", s.handlers.Organization.List)
		orgs.PATCH("/:orgId", s.handlers.Organization.Update)
		orgs.DELETE("/:orgId", s.handlers.Organization.Delete)
		orgs.POST("/:orgId/members", s.handlers.Organization.AddMember)
		orgs.PATCH("/:orgId/members/:userId", s.handlers.Organization.UpdateMemberRole)
		orgs.DELETE("/:orgId/members/:userId", s.handlers.Organization.RemoveMember)
		orgs.POST("/:orgId/projects", s.handlers.Project.Create)
	}

	projects := api.Group("/projects")
	{
		projects.GET("/:projectId", s.handlers.Project.Get)
		projects.PATCH("/:projectId", s.handlers.Project.Update)
		projects.DELETE("/:projectId", s.handlers.Project.Delete)
		projects.POST("/:projectId/api-keys", s.handlers.APIKey.Create)
		projects.GET("/:projectId/api-keys", s.handlers.APIKey.List)
		projects.DELETE("/:projectId/api-keys/:keyId", s.handlers.APIKey.Delete)
		projects.GET("/:projectId/traces", s.handlers.Trace.List)
		projects.GET("/:projectId/traces/:traceId", s.handlers.Trace.Get)
	}
}
