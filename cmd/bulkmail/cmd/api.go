package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpola/bulkmail/internal/api"
	"github.com/corpola/bulkmail/internal/api/handlers"
	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/health"
	"github.com/corpola/bulkmail/internal/queue"
)

var apiAddr string

// newAPICmd creates the api command.
func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

The API accepts mailing submissions, manages mail types, templates and
inline images, and serves the delivery ledger.`,
		Example: `  bulkmail api
  bulkmail api --addr :3000`,
		RunE: runAPI,
	}

	cmd.Flags().StringVar(&apiAddr, "addr", "", "listen address (overrides HTTP_ADDR)")

	return cmd
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiAddr != "" {
		cfg.HTTPAddr = apiAddr
	}

	logger, reg := initObservability(cfg)

	db, repos, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stager, err := attachment.NewStager(cfg.StagingDir, logger, reg)
	if err != nil {
		return err
	}

	manager := queue.NewManager(queue.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Concurrency:   cfg.QueueConcurrency,
		MaxRetry:      cfg.QueueMaxRetry,
		RetryBase:     30 * time.Second,
		RetryMax:      15 * time.Minute,
	}, logger)
	defer manager.Shutdown()

	broker := newRedisPinger(cfg)
	defer broker.Close()

	registry := health.NewRegistry(Version)
	registry.Register(health.NewDatabaseChecker(db))
	registry.Register(health.NewPingChecker("broker", broker, health.SeverityCritical))
	registry.Register(health.NewStagingChecker(cfg.StagingDir))

	handler := handlers.NewHandler(repos.catalog, repos.directory, repos.ledger, stager, manager, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		Health:  health.NewHandler(registry),
		Metrics: reg,
	})

	server := api.NewServer(router, cfg.HTTPAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Fprintln(cmd.OutOrStdout(), "shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "forced shutdown: %v\n", err)
		}
	}()

	logger.Info("api server listening", "addr", cfg.HTTPAddr)
	return server.Start()
}
