// Package http provides the REST API of the tracker backend.
//
// Endpoints:
//   - Status: /, /health, /metrics, /manifest
//   - Solar: /solar/position, /solar/profile
//   - Servos: /servo, /servo/:servo, /servo/:servo/adjust,
//     /servo/:servo/preset/:preset, /servo/base/rotate/:direction
//   - Tracking: /tracking, /tracking/start, /tracking/stop, /tracking/update
//   - Weather: /weather
//   - Location: /location
//   - Device: /device, /device/ping
//   - Commands: /commands, /commands/help
//
// Failures are JSON {"error": "..."} with the status chosen by StatusFor:
// 400 for bad input, 404 when a place or fix is missing, 409 when auto mode
// blocks a manual move, 502 when the board or weather API misbehaves and
// 503 when a circuit breaker is open or a dependency is not configured.
//
// Example Usage:
//
//	handlers := http.NewHandlers(http.Deps{Servos: ctrl, Tracker: mgr, Locations: store})
//	handlers.Register(router)
package http
