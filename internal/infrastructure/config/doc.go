// Package config provides 12-factor configuration management for the
// SolarSense backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Device: tracker board URL, timeout and retries
//   - Weather: OpenWeatherMap key and endpoints
//   - Tracking: auto tracking interval, mode and weather guard
//   - Servo: step sizes and rest position
//   - Location: minimum movement before a fix counts as new
//   - Manifest: build manifest and version catalog paths
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - ESP_URL, ESP_TIMEOUT, ESP_RETRIES
//   - WEATHER_API_KEY, WEATHER_URL, WEATHER_GEO_URL, WEATHER_UNITS, WEATHER_TIMEOUT, WEATHER_RPS
//   - TRACKING_INTERVAL, TRACKING_MODE, TRACKING_WEATHER_GUARD
//   - SERVO_STEP, VOICE_STEP, SERVO_DEFAULT_BASE, SERVO_DEFAULT_PANEL
//   - LOCATION_MIN_DISTANCE, MANIFEST_PATH, VERSION_CATALOG
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
