package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mokulua/rlvr/internal/adapters/tracing"
	"github.com/mokulua/rlvr/internal/langpack"
	"github.com/mokulua/rlvr/internal/server"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the translation API server",
		Long: `Start the RLVR HTTP API server.

The server exposes /translate with standard, rlvr and showcase modes,
language pack listing, per-language bandit statistics, the showcase
demonstration panel and prometheus metrics.

Language packs are read from the lang directory (RLVR_LANG_DIR), one
subdirectory per language code. LLM-backed packs need an API key
(RLVR_LLM_API_KEY or OPENAI_API_KEY); mock packs run offline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer(ctx context.Context) error {
	log.Println("Starting RLVR API server...")
	log.Printf("  HTTP:     http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  Lang Dir: %s", cfg.Server.LangDir)
	if cfg.IsLLMConfigured() {
		log.Printf("  LLM:      %s (%s)", cfg.LLM.URL, cfg.LLM.Model)
	} else {
		log.Println("  LLM:      not configured - llm packs unavailable")
	}
	log.Println()

	// Initialize OpenTelemetry tracing
	shutdown, err := tracing.InitTracer("rlvr-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
		log.Println("OpenTelemetry tracing initialized")
	}

	manager := langpack.NewManager(cfg.Server.LangDir,
		langpack.WithEpsilon(cfg.Server.Epsilon),
		langpack.WithLLMSettings(langpack.LLMSettings{
			BaseURL:              cfg.LLM.URL,
			APIKey:               cfg.LLM.APIKey,
			Model:                cfg.LLM.Model,
			ForceUnitTemperature: cfg.LLM.ForceUnitTemperature,
		}),
	)

	srv := server.NewServer(cfg, manager)

	// Pre-load the default pair; packs that fail here stay available
	// for lazy loading once their configuration is fixed.
	if err := srv.Warmup("haw", "en"); err != nil {
		log.Printf("Warning: pack warmup incomplete: %v", err)
	} else {
		log.Printf("Language packs warmed up: %v", manager.Loaded())
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErrors <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Println("Server stopped")
		return nil
	}
}
