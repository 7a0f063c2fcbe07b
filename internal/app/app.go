package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"brokle/internal/config"
	"brokle/pkg/logging"
)

// App is the top-level process wrapper for both the server and worker
// binaries, differing only in which half of ProviderContainer is populated.
type App struct {
	config       *config.Config
	logger       *logrus.Logger
	providers    *ProviderContainer
	mode         DeploymentMode
	shutdownOnce sync.Once
}

// NewServer builds the HTTP-serving process.
func NewServer(cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	core, err := ProvideCore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize core: %w", err)
	}

	server, err := ProvideServer(core)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return &App{
		mode:   ModeServer,
		config: cfg,
		logger: logger,
		providers: &ProviderContainer{
			Core:   core,
			Server: server,
			Mode:   ModeServer,
		},
	}, nil
}

// NewWorker builds the background transform process.
func NewWorker(cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	core, err := ProvideCore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize core: %w", err)
	}

	workerContainer, err := ProvideWorkers(core)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workers: %w", err)
	}

	return &App{
		mode:   ModeWorker,
		config: cfg,
		logger: logger,
		providers: &ProviderContainer{
			Core:    core,
			Workers: workerContainer,
			Mode:    ModeWorker,
		},
	}, nil
}

func (a *App) Start() error {
	a.logger.WithField("mode", a.mode).Info("starting brokle trace ingest")

	switch a.mode {
	case ModeServer:
		go func() {
			if err := a.providers.Server.HTTPServer.Start(); err != nil {
				a.logger.WithError(err).Error("http server exited")
			}
		}()
	case ModeWorker:
		if err := a.providers.Workers.Transform.Start(context.Background()); err != nil {
			a.logger.WithError(err).Error("failed to start transform worker")
			return err
		}
	}

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.shutdownOnce.Do(func() {
		shutdownErr = a.doShutdown(ctx)
	})
	return shutdownErr
}

func (a *App) doShutdown(ctx context.Context) error {
	a.logger.WithField("mode", a.mode).Info("shutting down")

	g, _ := errgroup.WithContext(ctx)

	switch a.mode {
	case ModeServer:
		g.Go(func() error {
			if err := a.providers.Server.HTTPServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			return nil
		})
	case ModeWorker:
		g.Go(func() error {
			a.providers.Workers.Transform.Stop()
			return nil
		})
	}

	g.Go(func() error {
		if err := a.providers.Core.Shutdown(); err != nil {
			return fmt.Errorf("core providers shutdown: %w", err)
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			a.logger.WithError(err).Error("shutdown completed with errors")
			return err
		}
		a.logger.Info("shutdown complete")
		return nil
	case <-ctx.Done():
		a.logger.Warn("shutdown timeout exceeded, forcing exit")
		return ctx.Err()
	}
}

// Health reports per-dependency status, surfaced via the /health handler.
func (a *App) Health() map[string]string {
	if a.providers != nil && a.providers.Core != nil {
		return a.providers.Core.HealthCheck()
	}
	return map[string]string{"status": "providers not initialized"}
}

func (a *App) GetLogger() *logrus.Logger {
	return a.logger
}

func (a *App) GetConfig() *config.Config {
	return a.config
}
