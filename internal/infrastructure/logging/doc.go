// Package logging provides structured logging for the MHUB bridge.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("hub reachable", "host", host)
//	logger.Error("refresh failed", "error", err)
//
// Never log MQTT or InfluxDB credentials.
package logging
