// Package config provides configuration management for the Whack-a-Mole game.
//
// The config package handles:
//   - Loading game configurations from JSON or HCL files
//   - Configuration validation through engine.ValidateGameConfig
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Configurations live in the configs directory as <id>.json or <id>.hcl.
// Both formats use the same snake_case attribute names:
//
//	name                 = "Classic"
//	rows                 = 4
//	columns              = 6
//	simultaneous_moles   = 5
//	mole_visible_seconds = 2
//	timer_seconds        = 6
//
// grid_width, grid_height and tick_millis are optional. When both a JSON and
// an HCL file share an id, the JSON file wins.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific configuration
//	gameConfig, err := manager.LoadConfig("frenzy")
//
//	// Get default configuration (classic, else first valid, else built-in)
//	defaultConfig := manager.GetDefault()
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
package config
