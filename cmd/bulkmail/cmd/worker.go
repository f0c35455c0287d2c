package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/internal/dispatch"
	"github.com/corpola/bulkmail/internal/inlineimage"
	"github.com/corpola/bulkmail/internal/queue"
	"github.com/corpola/bulkmail/pkg/integration/blobstore"
	"github.com/corpola/bulkmail/pkg/integration/brevo"
)

// newWorkerCmd creates the worker command.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start the dispatch worker",
		Long: `Start the dispatch worker.

The worker consumes queued mailing jobs, renders the active template per
recipient, embeds inline images, attaches staged files, and delivers
through the configured mail provider.`,
		Example: `  bulkmail worker
  QUEUE_CONCURRENCY=20 bulkmail worker`,
		RunE: runWorker,
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Brevo.APIKey == "" {
		return fmt.Errorf("BREVO_API_KEY is required for the worker")
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

	mailer, err := brevo.NewClient(cfg.Brevo)
	if err != nil {
		return err
	}

	worker := dispatch.NewWorker(dispatch.WorkerParams{
		Catalog:   repos.catalog,
		Directory: repos.directory,
		Ledger:    repos.ledger,
		Renderer:  catalog.NewRenderer(),
		Stager:    stager,
		Images:    inlineimage.NewResolver(repos.catalog, blobstore.NewClient(cfg.BlobStore), logger, reg),
		Transport: dispatch.NewBrevoTransport(mailer),
		Logger:    logger,
		Metrics:   reg,
	})

	manager := queue.NewManager(queue.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Concurrency:   cfg.QueueConcurrency,
		MaxRetry:      cfg.QueueMaxRetry,
		RetryBase:     30 * time.Second,
		RetryMax:      15 * time.Minute,
	}, logger)
	manager.Handle(dispatch.TypeDispatchJob, worker)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Fprintln(cmd.OutOrStdout(), "shutting down worker")
		manager.Shutdown()
	}()

	logger.Info("worker started", "concurrency", cfg.QueueConcurrency)
	return manager.Run()
}
