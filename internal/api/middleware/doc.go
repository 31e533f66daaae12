// Package middleware holds the HTTP middleware in front of the tracker API.
//
//   - CORS: cross-origin access for the phone app and dashboards
//   - RateLimit: per-IP token buckets, idle clients are forgotten
//   - Recovery: panics become a JSON 500 and are logged with the trace ID
//   - RequestLogger: one zap line per request
//   - Compress: gzip responses (klauspost/compress), WebSocket upgrades excluded
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	srv.Handler = middleware.Compress(router)
package middleware
