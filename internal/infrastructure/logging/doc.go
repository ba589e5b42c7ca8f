// Package logging provides structured logging using uber/zap.
//
// Two encodings are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// When a file is configured, entries are also written as JSON to a file
// rotated by lumberjack.
//
// Every HTTP request carries its own logger in the request context. The API
// middleware seeds it with request_id, project_id, user_id, trace_id and
// span_id; the engine adds script_hash once the script is known. Code deep in
// a request should log through FromContext so those fields are attached.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	ctx = logging.WithLogger(ctx, logger.With(zap.String(logging.FieldRequestID, rid)))
//	ctx = logging.With(ctx, zap.String(logging.FieldScriptHash, hash))
//	logging.FromContext(ctx, logger).Info("Executing script")
package logging
