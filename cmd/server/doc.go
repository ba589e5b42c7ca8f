// Package main is the entry point for the script engine server.
//
// The server executes Postman-style pre-request and test scripts on behalf
// of a caller and returns the mutated variables, request, cookies, test
// results and console output.
//
// Architecture:
//
//	HTTP (gin) → engine.Service → per-script gate → goja sandbox
//	           → Prometheus metrics on a separate listener
//
// Configuration:
//   - Defaults for development
//   - YAML or TOML file named by SCRIPT_ENGINE_CONFIG or -config
//   - Environment variables (12-factor), which win over the file
//   - CLI flags, which win over everything
//
// Usage:
//
//	# Production mode
//	./server -config /etc/script-engine.yaml
//
//	# Development mode (colored logs)
//	./server -dev -port 8080
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
