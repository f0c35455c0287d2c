// Package metrics provides Prometheus metrics collection for the bulkmail service.
package metrics

// Config holds configuration for the metrics module.
type Config struct {
	// Namespace is the prefix for all metrics (default: "bulkmail")
	Namespace string

	// DefaultLabels are applied to all metrics
	DefaultLabels map[string]string

	// EnableProcessMetrics enables Go process metrics (CPU, memory, goroutines)
	EnableProcessMetrics bool

	// EnableRuntimeMetrics enables Go runtime metrics
	EnableRuntimeMetrics bool

	// HistogramBuckets allows customizing default histogram buckets
	HistogramBuckets HistogramBucketsConfig
}

// HistogramBucketsConfig holds custom bucket configurations for different metric types.
type HistogramBucketsConfig struct {
	// HTTPDuration buckets for HTTP request duration in seconds
	HTTPDuration []float64

	// JobDuration buckets for whole-job dispatch duration in seconds
	JobDuration []float64

	// DeliveryDuration buckets for per-recipient transport call duration in seconds
	DeliveryDuration []float64

	// AttachmentSize buckets for staged attachment size in bytes
	AttachmentSize []float64
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: "bulkmail",
		DefaultLabels: map[string]string{
			"version":     "unknown",
			"environment": "development",
		},
		EnableProcessMetrics: true,
		EnableRuntimeMetrics: true,
		HistogramBuckets:     DefaultHistogramBuckets(),
	}
}

// DefaultHistogramBuckets returns the default histogram bucket configurations.
func DefaultHistogramBuckets() HistogramBucketsConfig {
	return HistogramBucketsConfig{
		HTTPDuration:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		JobDuration:      []float64{.1, .5, 1, 5, 10, 30, 60, 300, 600},
		DeliveryDuration: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		AttachmentSize:   []float64{1000, 10000, 100000, 1000000, 10000000, 50000000},
	}
}

// WithVersion sets the version label.
func (c Config) WithVersion(version string) Config {
	c.DefaultLabels["version"] = version
	return c
}

// WithEnvironment sets the environment label.
func (c Config) WithEnvironment(env string) Config {
	c.DefaultLabels["environment"] = env
	return c
}
