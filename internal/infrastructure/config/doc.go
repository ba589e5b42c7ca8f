// Package config provides 12-factor configuration management for the script engine.
//
// Values are layered: Default(), then the YAML or TOML file named by
// SCRIPT_ENGINE_CONFIG, then environment variables.
//
// Configuration Sections:
//   - Server: API listener, connection timeout and body size limits
//   - Monitoring: separate Prometheus listener
//   - Logging: level, encoding and optional rotating file
//   - HTTPLogging: request/response logging and its ignore patterns
//   - Script, Sandbox: execution timeout, lock table size, runtime limits
//   - RateLimit, CORS: API guards
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
package config
