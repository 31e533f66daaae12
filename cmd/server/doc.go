// Package main is the entry point for the SolarSense tracker backend.
//
// The backend drives a two-servo solar tracker board over HTTP. It computes
// the sun's position for the tracker's location, points the panel at it in
// auto mode, stows the panel flat when a thunderstorm is reported, and
// accepts manual and voice-style commands.
//
// Architecture:
//
//	Client app → REST + /stream WebSocket → Go Backend → Tracker board (ESP)
//	                                                 → Weather API
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - Flags on serve override the matching variable
//
// Usage:
//
//	# Run the server
//	./server serve --port 8000 --esp http://192.168.4.1
//
//	# Development mode (colored logs, debug level)
//	./server serve --dev
//
//	# Offline tools
//	./server position --lat 51.5 --lon -0.12
//	./server profile --lat 51.5 --lon -0.12 --date 2024-06-21 --samples
//	./server manifest validate --file configs/manifest.yaml --catalog configs/libs.versions.toml
//	./server command "set base to 120"
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
