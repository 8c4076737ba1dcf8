// Package service provides the business logic layer for the Whack-a-Mole game.
//
// The service package implements:
//   - Multi-session game management
//   - Start/reset toggling and cell hits
//   - Configuration listing, loading and saving
//   - A broadcast View that turns rendering calls into session events
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// Publisher receives the events emitted by SessionView.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine.Game; the game pushes
// display updates through a SessionView, which the WebSocket hub fans out to
// every browser watching that session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	sessionMgr := session.NewManager(
//		session.WithViewFactory(func(id string) engine.View {
//			return service.NewSessionView(id, hub)
//		}),
//	)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	result, err := gameService.Toggle(ctx, info.ID)
//	hit, err := gameService.Hit(ctx, info.ID, 1, 2)
package service
