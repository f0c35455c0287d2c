package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name     string
	severity Severity
	result   CheckResult
}

func (c *stubChecker) Name() string                          { return c.name }
func (c *stubChecker) Severity() Severity                    { return c.severity }
func (c *stubChecker) Check(ctx context.Context) CheckResult { return c.result }

func TestRegistry_HealthAggregatesStatus(t *testing.T) {
	r := NewRegistry("1.2.3")
	r.Register(&stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusHealthy}})
	r.Register(&stubChecker{name: "mailer", severity: SeverityWarning, result: CheckResult{Status: StatusUnhealthy, Message: "api down"}})

	resp := r.Health(context.Background())
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Len(t, resp.Checks, 2)
}

func TestRegistry_ReadinessRunsCriticalOnly(t *testing.T) {
	r := NewRegistry("1.2.3")
	r.Register(&stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusUnhealthy}})
	r.Register(&stubChecker{name: "mailer", severity: SeverityWarning, result: CheckResult{Status: StatusHealthy}})

	resp := r.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "database")
	assert.NotContains(t, resp.Checks, "mailer")
}

func TestHandler_UnhealthyReturns503(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.Register(&stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusUnhealthy, Message: "db down"}})

	router := chi.NewRouter()
	NewHandler(reg).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestHandler_LivenessAlwaysOK(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.Register(&stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusUnhealthy}})

	router := chi.NewRouter()
	NewHandler(reg).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("broker", pingFunc(func(ctx context.Context) error { return nil }), SeverityCritical)
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	down := NewPingChecker("broker", pingFunc(func(ctx context.Context) error { return errors.New("refused") }), SeverityCritical)
	result := down.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Contains(t, result.Message, "refused")
}

func TestStagingChecker(t *testing.T) {
	ok := NewStagingChecker(t.TempDir())
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	missing := NewStagingChecker("/nonexistent/staging")
	assert.Equal(t, StatusUnhealthy, missing.Check(context.Background()).Status)
}
