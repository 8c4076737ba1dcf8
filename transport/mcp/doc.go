// Package mcp exposes the whack-a-mole game to AI assistants over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes one or more REST
// requests against the API server, so MCP players share sessions with
// browser and WebSocket players.
//
// Tools:
//   - create_session, list_sessions, get_session, delete_session
//   - game_state: grid rendered as text, with timer and score
//   - toggle_game: start a round or reset a running one
//   - hit_cell: click one cell
//   - hit_all_moles: read the grid and hit every visible mole
//   - list_configs, game_instructions, describe_cell
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
