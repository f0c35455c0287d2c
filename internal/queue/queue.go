// Package queue wraps asynq with the client and server plumbing the
// dispatch pipeline runs on.
package queue

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"

	"github.com/corpola/bulkmail/internal/dispatch"
	"github.com/corpola/bulkmail/pkg/logging"
)

// Queue names in priority order.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Config holds queue settings.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	MaxRetry      int
	// RetryBase is the first retry delay; later attempts back off
	// exponentially from it.
	RetryBase time.Duration
	RetryMax  time.Duration
}

// DefaultConfig returns sensible queue defaults.
func DefaultConfig() Config {
	return Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 10,
		MaxRetry:    5,
		RetryBase:   30 * time.Second,
		RetryMax:    15 * time.Minute,
	}
}

// Enqueuer submits dispatch jobs. The API handler depends on this rather
// than the concrete manager so tests can capture enqueued jobs.
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, job *dispatch.Job) (taskID string, err error)
}

// Manager owns the asynq client and server.
type Manager struct {
	config Config
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logging.Logger
}

// NewManager creates a queue manager.
func NewManager(cfg Config, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithModule("queue")

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
			QueueLow:      1,
		},
		RetryDelayFunc: retryDelayFunc(cfg),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.ErrorContext(ctx, "task failed", "type", task.Type(), "retried", retried, "error", err)
		}),
		Logger: asynqLogger{logger},
	})

	return &Manager{
		config: cfg,
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
		logger: logger,
	}
}

// Handle registers a task handler.
func (m *Manager) Handle(taskType string, handler asynq.Handler) {
	m.mux.Handle(taskType, handler)
}

// EnqueueDispatch submits a dispatch job to the default queue.
func (m *Manager) EnqueueDispatch(ctx context.Context, job *dispatch.Job) (string, error) {
	task, err := dispatch.NewTask(job)
	if err != nil {
		return "", err
	}

	info, err := m.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(m.config.MaxRetry),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("queue: enqueue dispatch: %w", err)
	}

	m.logger.InfoContext(ctx, "enqueued dispatch job",
		"task_id", info.ID,
		"mail_type_id", job.MailTypeID,
		"recipients", len(job.RecipientIDs))
	return info.ID, nil
}

// Run starts the worker server and blocks until it stops.
func (m *Manager) Run() error {
	return m.server.Run(m.mux)
}

// Shutdown stops the server and closes the client.
func (m *Manager) Shutdown() {
	m.server.Shutdown()
	if err := m.client.Close(); err != nil {
		m.logger.Error("closing queue client", "error", err)
	}
}

// retryDelayFunc backs off exponentially with jitter so a flapping
// downstream is not hammered by synchronized retries.
func retryDelayFunc(cfg Config) asynq.RetryDelayFunc {
	return func(n int, err error, task *asynq.Task) time.Duration {
		delay := cfg.RetryBase * (1 << n)
		if delay > cfg.RetryMax || delay <= 0 {
			delay = cfg.RetryMax
		}
		jitter := time.Duration(rand.Int63n(int64(delay) / 4))
		return delay + jitter
	}
}

// asynqLogger adapts our logger to asynq's logging interface.
type asynqLogger struct {
	logger *logging.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
