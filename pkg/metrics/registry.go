package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages all Prometheus metrics for the bulkmail service.
type Registry struct {
	config   Config
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Dispatch metrics
	jobsTotal           *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
	recipientsTotal     *prometheus.CounterVec
	deliveryDuration    prometheus.Histogram
	inlineImagesFetched prometheus.Counter

	// Attachment metrics
	attachmentsStaged  prometheus.Counter
	attachmentBytes    prometheus.Histogram
	attachmentsCleaned prometheus.Counter
	attachmentsLeaked  prometheus.Counter
}

// Global registry instance
var (
	globalRegistry *Registry
	once           sync.Once
)

// NewRegistry creates a new metrics registry with the given configuration.
func NewRegistry(config Config) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		config:   config,
		registry: reg,
	}

	r.registerHTTPMetrics()
	r.registerDispatchMetrics()
	r.registerAttachmentMetrics()

	// Register process and runtime metrics if enabled
	if config.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if config.EnableRuntimeMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}

	return r
}

// Global returns the global registry instance, initializing it with default config if needed.
func Global() *Registry {
	once.Do(func() {
		globalRegistry = NewRegistry(DefaultConfig())
	})
	return globalRegistry
}

// SetGlobal sets the global registry instance.
func SetGlobal(r *Registry) {
	globalRegistry = r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	return r.config
}

func (r *Registry) registerHTTPMetrics() {
	ns := r.config.Namespace

	r.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status_code"},
	)

	r.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   r.config.HistogramBuckets.HTTPDuration,
		},
		[]string{"method", "path"},
	)

	r.registry.MustRegister(r.httpRequestsTotal, r.httpRequestDuration)
}

func (r *Registry) registerDispatchMetrics() {
	ns := r.config.Namespace

	r.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "jobs_total",
			Help:      "Total number of dispatch jobs processed, by outcome",
		},
		[]string{"outcome"},
	)

	r.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "job_duration_seconds",
			Help:      "Whole-job dispatch duration in seconds",
			Buckets:   r.config.HistogramBuckets.JobDuration,
		},
		[]string{"outcome"},
	)

	r.recipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "recipients_total",
			Help:      "Per-recipient delivery outcomes",
		},
		[]string{"status"},
	)

	r.deliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "delivery_duration_seconds",
			Help:      "Transport call duration per recipient in seconds",
			Buckets:   r.config.HistogramBuckets.DeliveryDuration,
		},
	)

	r.inlineImagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "inline_images_fetched_total",
			Help:      "Inline images fetched from the blob store",
		},
	)

	r.registry.MustRegister(
		r.jobsTotal,
		r.jobDuration,
		r.recipientsTotal,
		r.deliveryDuration,
		r.inlineImagesFetched,
	)
}

func (r *Registry) registerAttachmentMetrics() {
	ns := r.config.Namespace

	r.attachmentsStaged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "attachments",
			Name:      "staged_total",
			Help:      "Attachments staged to disk",
		},
	)

	r.attachmentBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "attachments",
			Name:      "staged_bytes",
			Help:      "Size of staged attachments in bytes",
			Buckets:   r.config.HistogramBuckets.AttachmentSize,
		},
	)

	r.attachmentsCleaned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "attachments",
			Name:      "cleaned_total",
			Help:      "Staged attachments removed after job completion",
		},
	)

	r.attachmentsLeaked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "attachments",
			Name:      "cleanup_failures_total",
			Help:      "Cleanup attempts that failed to remove a staged file",
		},
	)

	r.registry.MustRegister(
		r.attachmentsStaged,
		r.attachmentBytes,
		r.attachmentsCleaned,
		r.attachmentsLeaked,
	)
}

// RecordHTTPRequest records an HTTP request with its outcome.
func (r *Registry) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordJob records a completed dispatch job.
func (r *Registry) RecordJob(outcome string, duration time.Duration) {
	r.jobsTotal.WithLabelValues(outcome).Inc()
	r.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRecipient records one per-recipient delivery outcome.
func (r *Registry) RecordRecipient(status string) {
	r.recipientsTotal.WithLabelValues(status).Inc()
}

// RecordDelivery records the duration of one transport call.
func (r *Registry) RecordDelivery(duration time.Duration) {
	r.deliveryDuration.Observe(duration.Seconds())
}

// RecordInlineImageFetch records one blob-store image fetch.
func (r *Registry) RecordInlineImageFetch() {
	r.inlineImagesFetched.Inc()
}

// RecordAttachmentStaged records one staged attachment and its size.
func (r *Registry) RecordAttachmentStaged(sizeBytes int64) {
	r.attachmentsStaged.Inc()
	r.attachmentBytes.Observe(float64(sizeBytes))
}

// RecordAttachmentCleaned records one removed staged file.
func (r *Registry) RecordAttachmentCleaned() {
	r.attachmentsCleaned.Inc()
}

// RecordCleanupFailure records a staged file that could not be removed.
func (r *Registry) RecordCleanupFailure() {
	r.attachmentsLeaked.Inc()
}
