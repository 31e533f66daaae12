// Package ws serves the /stream WebSocket. Every connected client receives
// the tracker's events (servo moves, tracking updates, weather alerts) as
// they are published and may send text commands back.
//
// Server messages:
//
//	{"type": "system", "client_id": "...", "message": "..."}
//	{"type": "event", "event": {"id": "evt_...", "type": "servo.moved", ...}}
//	{"type": "command_result", "outcome": {...}}
//	{"type": "pong"}
//	{"type": "error", "message": "..."}
//
// Client messages:
//
//	{"type": "ping"}
//	{"type": "command", "text": "panel up"}
package ws
