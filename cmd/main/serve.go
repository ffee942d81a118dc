package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"forge/internal/agent"
	"forge/internal/api"
	"forge/internal/config"
	"forge/internal/db"
	"forge/internal/db/repositories"
	"forge/internal/events"
	"forge/internal/logging"
	"forge/internal/sandbox"
	"forge/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and workflow worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Flag and config-file values flow into config.Load through the
	// environment, so FORGE_* variables remain the single source of truth.
	os.Setenv("FORGE_API_PORT", fmt.Sprintf("%d", viper.GetInt("api_port")))
	os.Setenv("FORGE_DATABASE_URL", viper.GetString("database_url"))
	os.Setenv("FORGE_NATS_URL", viper.GetString("nats_url"))
	if viper.GetBool("debug") {
		os.Setenv("FORGE_DEBUG", "true")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	repos := repositories.New(database)

	conn, err := events.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	provider, err := sandbox.NewQiniuProvider(cfg.SandboxAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create sandbox provider: %w", err)
	}
	chat := agent.NewOpenAIClient(cfg.AIAPIKey, cfg.AIBaseURL)

	wf := workflow.New(cfg, repos, provider, chat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subscriber := events.NewSubscriber(conn, wf)
	if err := subscriber.Start(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to run events: %w", err)
	}
	defer subscriber.Stop()

	server := api.New(cfg, repos, events.NewPublisher(conn))
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("API server stopped: %w", err)
	}

	logging.Info("shutdown complete")
	return nil
}
