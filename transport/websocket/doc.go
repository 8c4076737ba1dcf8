// Package websocket provides WebSocket transport for the Whack-a-Mole game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Fan-out of view events (cell, timer, score, label, state)
//   - Dispatch of client actions to a MessageHandler
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub owns every connection. Its Run loop is the only goroutine
// that registers, unregisters or writes to clients; each connection has a
// read pump and a write pump. Publish is safe to call while holding a game
// lock: it enqueues on a buffered channel and drops the event if the hub is
// too far behind.
//
// Message Protocol:
//
// Outgoing frames hold one JSON document each:
//
//	{"session_id": "ab12", "event": "cell", "data": {"row": 1, "column": 4, "active": true}}
//
// Incoming frames are actions:
//
//	{"action": "toggle"}
//	{"action": "hit", "row": 1, "column": 4}
//	{"action": "sync"}
//
// A failed action is answered with an "error" event sent only to that client.
//
// Connection Lifecycle:
//
// 1. Client connects with ?session=<id>
// 2. Connection registered with hub
// 3. A sync action asks the handler for a full snapshot
// 4. Client sends actions, receives incremental events
// 5. Disconnection or hub shutdown triggers cleanup
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetHandler(apiServer)
//	go hub.Run(ctx)
package websocket
