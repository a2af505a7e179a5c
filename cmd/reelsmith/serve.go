package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/reelsmith/internal/config"
	"github.com/jonathan/reelsmith/internal/db"
	"github.com/jonathan/reelsmith/internal/pipeline"
	"github.com/jonathan/reelsmith/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for creating runs, tracking their progress over SSE, and querying archived run history.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	var cfg config.Config
	if serveConfigPath != "" {
		loadedCfg, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.FalAPIKey == "" {
		cfg.FalAPIKey = os.Getenv("FAL_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	// Client API key for the token exchange endpoint
	apiKey := os.Getenv("REELSMITH_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("REELSMITH_API_KEY environment variable is required")
	}

	// Archival database is optional; without it the server serves live
	// runs only and the history endpoint returns 503.
	var database *db.DB
	var archiver pipeline.Archiver
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}
		archiver = database
	}

	hub := server.NewHub()
	ctrl, err := buildController(ctx, cfg, archiver, hub.Publish)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{Port: servePort, APIKey: apiKey}, ctrl, database, hub)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
