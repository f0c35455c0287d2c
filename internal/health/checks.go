package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DatabaseChecker pings the SQL database.
type DatabaseChecker struct {
	db *sql.DB
}

// NewDatabaseChecker creates a database checker.
func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string       { return "database" }
func (c *DatabaseChecker) Severity() Severity { return SeverityCritical }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	stats := c.db.Stats()
	return CheckResult{
		Status: StatusHealthy,
		Details: map[string]any{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	}
}

// Pinger is anything with a context-aware ping, such as the Redis broker
// client or the mail provider client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker wraps a Pinger as a named health check.
type PingChecker struct {
	name     string
	pinger   Pinger
	severity Severity
}

// NewPingChecker creates a checker that calls Ping on the dependency.
func NewPingChecker(name string, pinger Pinger, severity Severity) *PingChecker {
	return &PingChecker{name: name, pinger: pinger, severity: severity}
}

func (c *PingChecker) Name() string       { return c.name }
func (c *PingChecker) Severity() Severity { return c.severity }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("%s ping failed: %v", c.name, err)}
	}
	return CheckResult{Status: StatusHealthy}
}

// StagingChecker verifies the attachment staging directory is writable.
// A read-only staging volume breaks every new submission, so this is
// critical for the API process.
type StagingChecker struct {
	dir string
}

// NewStagingChecker creates a staging-directory checker.
func NewStagingChecker(dir string) *StagingChecker {
	return &StagingChecker{dir: dir}
}

func (c *StagingChecker) Name() string       { return "staging" }
func (c *StagingChecker) Severity() Severity { return SeverityCritical }

func (c *StagingChecker) Check(ctx context.Context) CheckResult {
	probe := filepath.Join(c.dir, ".probe-"+uuid.NewString())
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("staging dir not writable: %v", err)}
	}
	os.Remove(probe)

	return CheckResult{Status: StatusHealthy, Details: map[string]any{"dir": c.dir}}
}
