// Package api provides HTTP REST API handlers for the whack-a-mole game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session and stop its timers
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Full game snapshot
//   - POST /api/sessions/{id}/toggle - Press the start/reset control
//   - POST /api/sessions/{id}/hit - Click a cell ({"row": 1, "column": 2})
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Load one configuration
//   - POST /api/configs - Save a configuration as JSON
//
// Real-time:
//   - GET /ws?session={id} - WebSocket stream of cell, timer, score, label
//     and state events. Clients send {"action": "toggle"|"hit"|"sync"}.
//
// The embedded browser page is served at /.
//
// Errors are returned as {"error": "..."}. Unknown sessions and configs map
// to 404, invalid configurations to 400.
package api
