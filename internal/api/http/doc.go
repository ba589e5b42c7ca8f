// Package http exposes the script engine over HTTP.
//
// Routes:
//   - POST /api/v1/script/execute: run a script against a scripting context
//   - GET  /probes/live, /probes/ready: liveness and readiness probes
//
// Failures are written as {statusCode, timestamp, path, error, message}.
// Scope build errors and malformed bodies map to 400, sandbox timeouts to
// 504, everything else to 500.
package http
