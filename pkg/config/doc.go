// Package config provides configuration management for atrium.
//
// Configuration is loaded from a YAML file, completed with defaults,
// optionally overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("atrium.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ATRIUM_SECTION_FIELD:
//
//   - ATRIUM_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ATRIUM_EXPORT_DELIMITER overrides export.delimiter
//   - ATRIUM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based
// configuration.
//
// # Example
//
//	server:
//	  listen_address: 127.0.0.1:8080
//	storage:
//	  disks:
//	    public:
//	      root: data/public
//	      url: http://127.0.0.1:8080/storage
//	export:
//	  disk: public
//	  dir: exports
//	  format: csv
//	  delimiter: ";"
//	  queue: true
//	queue:
//	  backend: sqlite
//	  sqlite:
//	    path: data/queue.db
//	datasource:
//	  path: data/app.db
//	resources:
//	  path: resources.yaml
//	  watch: true
//	retention:
//	  enabled: true
//	  days: 7
//	  schedule: "0 3 * * *"
//
// # Validation
//
// Validation collects every problem into a ValidationError whose
// FieldErrors name the dotted configuration path.
package config
