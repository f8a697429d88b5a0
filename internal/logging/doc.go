// Package logging provides structured logging for the upnp-cp control point.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used across discovery, description fetching and action
// invocation.
//
// # Log Levels
//
//   - Debug: SSDP datagram dumps, HTTP request/response traces, skipped out-arguments
//   - Info: searches started and finished, services bound, actions invoked
//   - Warn: per-device or per-service failures, degraded remote faults
//   - Error: failures that abort a command
//
// # Configuration
//
// Logging is silent by default so CLI output stays clean. Set the level
// explicitly or through UPNPCP_LOG_LEVEL:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Log output goes to stderr so it never interleaves with JSON printed on stdout.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has run.
package logging
