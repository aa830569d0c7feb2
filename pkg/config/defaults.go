package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress        = "127.0.0.1:8080"
	DefaultReadTimeout          = 30 * time.Second
	DefaultWriteTimeout         = 5 * time.Minute
	DefaultIdleTimeout          = 120 * time.Second
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultMaxHeaderBytes       = 1048576 // 1MB
	DefaultMaxConcurrentExports = 4

	// Storage defaults
	DefaultDisk     = "public"
	DefaultDiskRoot = "data/public"

	// Export defaults
	DefaultExportDir       = "exports"
	DefaultExportFormat    = "xlsx"
	DefaultExportDelimiter = ","

	// Queue defaults
	DefaultQueueBackend      = "sqlite"
	DefaultQueueSQLitePath   = "data/queue.db"
	DefaultQueueConcurrency  = 2
	DefaultQueuePollInterval = 500 * time.Millisecond
	DefaultQueueMaxAttempts  = 3
	DefaultQueueRetryDelay   = 5 * time.Second
	DefaultQueueTaskTimeout  = 30 * time.Minute
	DefaultQueuePruneAfter   = 7 * 24 * time.Hour

	// Datasource defaults
	DefaultDatasourcePath         = "data/atrium.db"
	DefaultDatasourceMaxOpenConns = 10
	DefaultBusyTimeout            = 5 * time.Second

	// Resources defaults
	DefaultResourcesPath     = "resources.yaml"
	DefaultResourcesDebounce = 100 * time.Millisecond

	// Retention defaults
	DefaultRetentionDays     = 7
	DefaultRetentionSchedule = "0 3 * * *"

	// Notification defaults
	DefaultInboxCapacity = 100

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
	DefaultMetricsPath   = "/metrics"
	DefaultNamespace     = "atrium"
	DefaultLivenessPath  = "/health"
	DefaultReadinessPath = "/ready"
	DefaultHealthTimeout = 5 * time.Second

	// Tracing defaults
	DefaultTracingSampler  = "always"
	DefaultTracingEndpoint = "localhost:4317"
	DefaultTracingTimeout  = 10 * time.Second
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxConcurrentExports == 0 {
		cfg.Server.MaxConcurrentExports = DefaultMaxConcurrentExports
	}

	// Storage defaults
	if len(cfg.Storage.Disks) == 0 {
		cfg.Storage.Disks = map[string]DiskConfig{
			DefaultDisk: {Root: DefaultDiskRoot, URL: "/storage"},
		}
	}

	// Export defaults
	if cfg.Export.Disk == "" {
		cfg.Export.Disk = DefaultDisk
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = DefaultExportDir
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = DefaultExportFormat
	}
	if cfg.Export.Delimiter == "" {
		cfg.Export.Delimiter = DefaultExportDelimiter
	}

	// Queue defaults
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = DefaultQueueBackend
	}
	if cfg.Queue.SQLite.Path == "" {
		cfg.Queue.SQLite.Path = DefaultQueueSQLitePath
	}
	if cfg.Queue.SQLite.BusyTimeout == 0 {
		cfg.Queue.SQLite.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = DefaultQueueConcurrency
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = DefaultQueuePollInterval
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = DefaultQueueMaxAttempts
	}
	if cfg.Queue.RetryDelay == 0 {
		cfg.Queue.RetryDelay = DefaultQueueRetryDelay
	}
	if cfg.Queue.TaskTimeout == 0 {
		cfg.Queue.TaskTimeout = DefaultQueueTaskTimeout
	}
	if cfg.Queue.PruneAfter == 0 {
		cfg.Queue.PruneAfter = DefaultQueuePruneAfter
	}

	// Datasource defaults
	if cfg.Datasource.Path == "" {
		cfg.Datasource.Path = DefaultDatasourcePath
	}
	if cfg.Datasource.MaxOpenConns == 0 {
		cfg.Datasource.MaxOpenConns = DefaultDatasourceMaxOpenConns
	}
	if cfg.Datasource.WALMode == nil {
		cfg.Datasource.WALMode = boolPtr(true)
	}
	if cfg.Datasource.BusyTimeout == 0 {
		cfg.Datasource.BusyTimeout = DefaultBusyTimeout
	}

	// Resources defaults
	if cfg.Resources.Path == "" {
		cfg.Resources.Path = DefaultResourcesPath
	}
	if cfg.Resources.Debounce == 0 {
		cfg.Resources.Debounce = DefaultResourcesDebounce
	}

	// Retention defaults
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}

	// Notification defaults
	if cfg.Notifications.InboxCapacity == 0 {
		cfg.Notifications.InboxCapacity = DefaultInboxCapacity
	}
	if cfg.Notifications.Log == nil {
		cfg.Notifications.Log = boolPtr(true)
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.RedactPII == nil {
		cfg.Telemetry.Logging.RedactPII = boolPtr(true)
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultNamespace
	}
	if len(cfg.Telemetry.Metrics.ExportDurationBuckets) == 0 {
		// Exports range from sub-second listings to multi-minute dumps
		cfg.Telemetry.Metrics.ExportDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900}
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30}
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthTimeout
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Sampler == DefaultTracingSampler && cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = 1.0
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultNamespace
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}

	if cfg.Server.ServeStorage == nil {
		cfg.Server.ServeStorage = boolPtr(true)
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func boolPtr(b bool) *bool {
	return &b
}
