package config

import "time"

// Config is the root configuration structure for atrium.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Storage contains the named disks export files are written to.
	Storage StorageConfig `yaml:"storage"`

	// Export contains the defaults of export handlers.
	Export ExportConfig `yaml:"export"`

	// Queue contains background job configuration.
	Queue QueueConfig `yaml:"queue"`

	// Datasource contains the database resources are read from.
	Datasource DatasourceConfig `yaml:"datasource"`

	// Resources locates the resource definition file.
	Resources ResourcesConfig `yaml:"resources"`

	// Retention controls removal of old export files.
	Retention RetentionConfig `yaml:"retention"`

	// Notifications contains notification delivery configuration.
	Notifications NotificationsConfig `yaml:"notifications"`

	// Telemetry contains logging, metrics, health and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Synchronous exports must finish within it.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ServeStorage serves every disk with a URL below its URL path.
	// Default: true
	ServeStorage *bool `yaml:"serve_storage"`

	// MaxConcurrentExports limits synchronous exports in flight. Further
	// export requests are rejected with 429. A negative value disables the
	// limit.
	// Default: 4
	MaxConcurrentExports int `yaml:"max_concurrent_exports"`
}

// StorageConfig contains the named storage disks.
type StorageConfig struct {
	// Disks maps disk names to local roots and public URLs.
	Disks map[string]DiskConfig `yaml:"disks"`
}

// DiskConfig is one storage disk.
type DiskConfig struct {
	// Root is the local directory of the disk.
	Root string `yaml:"root"`

	// URL is the public base URL the disk is served under.
	URL string `yaml:"url"`
}

// ExportConfig contains export handler defaults.
type ExportConfig struct {
	// Disk is the storage disk export files are written to.
	// Default: "public"
	Disk string `yaml:"disk"`

	// Dir is the disk-relative export directory.
	// Default: "exports"
	Dir string `yaml:"dir"`

	// Format is "xlsx" or "csv".
	// Default: "xlsx"
	Format string `yaml:"format"`

	// Delimiter is the CSV delimiter, a single character.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Queue runs exports in the background.
	// Default: false
	Queue bool `yaml:"queue"`

	// NotifyUsers receive a notification when an export is ready. The
	// requesting user (X-Atrium-User header) is always added.
	NotifyUsers []string `yaml:"notify_users"`
}

// QueueConfig contains background job configuration.
type QueueConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the durable backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Concurrency is the number of worker goroutines.
	// Default: 2
	Concurrency int `yaml:"concurrency"`

	// PollInterval is the idle wait between polls.
	// Default: 500ms
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxAttempts is the number of attempts before a job fails.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is multiplied by the attempt number between retries.
	// Default: 5s
	RetryDelay time.Duration `yaml:"retry_delay"`

	// TaskTimeout bounds a single job.
	// Default: 30m
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// PruneAfter removes finished jobs older than this during retention.
	// Default: 168h (7 days)
	PruneAfter time.Duration `yaml:"prune_after"`
}

// SQLiteConfig contains SQLite file settings.
type SQLiteConfig struct {
	// Path is the database file.
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DatasourceConfig contains the resource database.
type DatasourceConfig struct {
	// Path is the SQLite database file.
	// Default: "data/atrium.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ResourcesConfig locates the resource definitions.
type ResourcesConfig struct {
	// Path is the YAML resource definition file.
	// Default: "resources.yaml"
	Path string `yaml:"path"`

	// Watch reloads the definitions when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce delays reloads after a burst of file events.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// RetentionConfig controls removal of old export files.
type RetentionConfig struct {
	// Enabled turns on the retention scheduler.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Days is how long export files are kept.
	// Default: 7
	Days int `yaml:"days"`

	// Schedule is a standard five field cron expression.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// NotificationsConfig contains notification delivery settings.
type NotificationsConfig struct {
	// InboxCapacity is the number of notifications kept per user.
	// Default: 100
	InboxCapacity int `yaml:"inbox_capacity"`

	// Log also writes every notification to the log.
	// Default: true
	Log *bool `yaml:"log"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health configures the probe endpoints.
	Health HealthConfig `yaml:"health"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks e-mail addresses and secrets.
	// Default: true
	RedactPII *bool `yaml:"redact_pii"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded and exposed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the scrape endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "atrium"
	Namespace string `yaml:"namespace"`

	// ExportDurationBuckets are the export duration histogram buckets in
	// seconds.
	ExportDurationBuckets []float64 `yaml:"export_duration_buckets"`

	// RequestDurationBuckets are the HTTP duration histogram buckets in
	// seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns on span export. When false a noop tracer is used.
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces kept by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "atrium"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// Bool returns the value of an optional flag, or def when unset.
func Bool(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
