package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arenalab/orchestrator/internal/adapter/arena"
	"github.com/arenalab/orchestrator/internal/adapter/llm"
	"github.com/arenalab/orchestrator/internal/adapter/progress"
	"github.com/arenalab/orchestrator/internal/config"
	"github.com/arenalab/orchestrator/internal/service"
	handler "github.com/arenalab/orchestrator/internal/transport/http"
	"github.com/arenalab/orchestrator/internal/store"
	"github.com/arenalab/orchestrator/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting orchestrator...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Arena URL: %s", cfg.ArenaBaseURL)
	log.Printf("Real arena enabled: %v", cfg.UseRealArena)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize arena client
	arenaClient := arena.NewClient(cfg.ArenaBaseURL, cfg.StepCallTimeout)

	// Initialize model client factory
	llmFactory := llm.NewFactory(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.ModelTimeout)

	// Initialize progress client
	progressClient := progress.NewClient(cfg.ProgressURL)

	// Initialize action guardrail
	ctx := context.Background()
	guard, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, arenaClient, llmFactory, guard, progressClient, cfg)

	// Create HTTP server
	server := handler.NewServer(svc)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Orchestrator API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orchestrator...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Orchestrator stopped")
}
