// Package logging configures the process wide structured logger.
//
// # Overview
//
// New builds a *slog.Logger from a Config:
//   - JSON or text output
//   - configurable level (debug, info, warn, error)
//   - request scoped fields taken from the context
//   - optional redaction of personal data such as notification
//     recipients' e-mail addresses
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "export queued", "notify_users", []string{"ann@example.com"})
//	// {"msg":"export queued","notify_users":["a***@example.com"],"request_id":"req-123"}
//
// Packages obtain their logger with
// slog.Default().With("component", "pkg.name").
package logging
