// Package middleware provides the gin middleware chain for the script engine API.
//
// Middleware stack includes:
//   - Recovery: Panic recovery with a JSON error body
//   - RequestID: X-Request-Id propagation and generation
//   - LogContext: Request-scoped zap logger with request, project and user ids
//   - Gzip: Compressed request bodies and responses
//   - HTTPLogging: Request/response logging with URI and header filters
//   - CORS: Cross-origin resource sharing
//   - RateLimit: Per-IP token bucket rate limiting
//   - BodyLimit: Request size ceiling
//
// Rate Limiting:
//   - Per-IP tracking with idle client eviction
//   - Token bucket algorithm (golang.org/x/time/rate)
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
