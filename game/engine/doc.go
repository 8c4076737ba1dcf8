// Package engine provides the core game logic for the whack-a-mole game.
//
// The engine package implements the game mechanics including:
//   - The mole field: a periodic wipe-and-repopulate cycle of active cells
//   - The score counter
//   - The countdown timer with a once-only completion callback
//   - The session controller (Game) toggling between Idle and Running
//   - Configuration validation
//
// Core Types:
//
// Game is the session controller. It owns one MoleField, one Score and one
// Countdown and routes clicks to them. GameConfig defines the grid and the
// timings, GameState is a serializable snapshot, and View is the rendering
// collaborator the engine drives.
//
// Usage:
//
//	game, err := engine.NewGame(engine.DefaultGameConfig(), clock.Real(), view)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer game.Close()
//
//	game.Start()                                  // Idle -> Running
//	hit := game.Hit(engine.Position{Row: 1, Column: 2})
//	state := game.Snapshot()
//
// Timing:
//
// Every timer in the engine is a clock.Task obtained from the injected
// clock.Clock. Ticks are serialized with the public methods by the Game's
// mutex, and each component tags its task with a generation number so a
// tick that was already waiting when the task was cancelled does nothing.
// Stopping a round cancels both the countdown and the spawn cycle.
//
// Game Rules:
//
// Pressing start begins a round: the score resets, moles appear and the
// countdown runs. Clicking a highlighted cell removes the mole and scores a
// point. All moles are replaced every visible period. When the countdown
// reaches zero the round ends; pressing start during a round aborts it.
package engine
