// Package logging provides structured logging for the driver service.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Formats
//
//   - json: machine-parsable output for production
//   - text: slog key=value output
//   - console: coloured, human-readable output for development (tint)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text, console
//	  output: "stdout"   # stdout, stderr
//	  no_color: false    # console only
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "device", cfg.Driver.Device)
//	logger.Error("hub unreachable", "error", err)
//
// Never log the Home Assistant access token or any other secret.
package logging
