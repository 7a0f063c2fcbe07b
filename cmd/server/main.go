// Package main provides the main entry point for the Brokle trace ingestion
// API server.
//
// This is the HTTP API server that handles:
// - Trace ingestion and read endpoints
// - Tenant/organization/project management
// - Database migrations (server owns migrations)
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brokle/internal/app"
	"brokle/internal/config"
	"brokle/internal/migration"
)

// @title Brokle Trace Ingestion API
// @version 1.0.0
// @description Trace ingestion and query core for an LLM-observability platform.
// @termsOfService https://brokle.ai/terms
//
// @contact.name Brokle Platform Team
// @contact.url https://brokle.ai/support
// @contact.email support@brokle.ai
//
// @license.name MIT License
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @schemes http https
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Project-scoped ingestion key. Format: Authorization: Bearer tr-...
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SERVER OWNS MIGRATIONS - Run before app initialization
	if cfg.Database.AutoMigrate {
		log.Println("Running database migrations...")

		migrationManager, migErr := migration.NewManager(cfg)
		if migErr != nil {
			log.Fatalf("Failed to initialize migration manager: %v", migErr)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := migrationManager.AutoMigrate(ctx); err != nil {
			log.Fatalf("Auto-migration failed: %v", err)
		}

		if err := migrationManager.Shutdown(); err != nil {
			log.Printf("Warning: failed to shutdown migration manager: %v", err)
		}

		log.Println("Migrations completed successfully")
	}

	// Initialize server application (HTTP only, no workers)
	application, err := app.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	// Start the HTTP server
	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down server...")

	// Graceful shutdown with 30 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server stopped")
}
