package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/internal/config"
	"github.com/corpola/bulkmail/internal/database"
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/ledger"
	"github.com/corpola/bulkmail/pkg/logging"
	"github.com/corpola/bulkmail/pkg/metrics"
)

// repositories bundles the SQL-backed stores.
type repositories struct {
	catalog   *catalog.SQLRepository
	directory *directory.SQLRepository
	ledger    *ledger.SQLRepository
}

// loadConfig reads and validates the environment configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// openDatabase connects and returns the repositories on top of it.
func openDatabase(cfg config.Config) (*sql.DB, *repositories, error) {
	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	repos := &repositories{
		catalog:   catalog.NewSQLRepository(db),
		directory: directory.NewSQLRepository(db),
		ledger:    ledger.NewSQLRepository(db),
	}
	return db, repos, nil
}

// schemaStatements collects the DDL of every store for the migrate command.
func schemaStatements(driver string) []string {
	var stmts []string
	stmts = append(stmts, catalog.Schema(driver)...)
	stmts = append(stmts, directory.Schema(driver)...)
	stmts = append(stmts, ledger.Schema(driver)...)
	return stmts
}

// redisPinger adapts a go-redis client to the health Pinger interface.
type redisPinger struct {
	client *redis.Client
}

func newRedisPinger(cfg config.Config) *redisPinger {
	return &redisPinger{client: redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})}
}

func (p *redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *redisPinger) Close() error {
	return p.client.Close()
}

// initObservability builds the logger and metrics registry and installs
// them as process-wide defaults.
func initObservability(cfg config.Config) (*logging.Logger, *metrics.Registry) {
	logger := logging.New(cfg.Logging)
	logger.SetDefault()

	reg := metrics.NewRegistry(metrics.DefaultConfig())
	metrics.SetGlobal(reg)

	return logger, reg
}
