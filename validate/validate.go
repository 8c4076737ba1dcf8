// Command validate checks the game configuration files (JSON and HCL) in a
// configs directory. It checks:
//   - Syntax of each document
//   - The engine's own rules (grid bounds, mole count, durations)
//   - Playability: moles must respawn at least once per round
//
// Valid files get a short summary: grid, mole density, spawn cycles per
// round and rendered cell size.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/molegame/game/config"
	"github.com/wricardo/mcp-training/molegame/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// denseThreshold is the mole density above which a board is flagged as crowded
const denseThreshold = 0.5

// decode parses a configuration document by file extension
func decode(filePath string, data []byte) (*engine.GameConfig, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return config.DecodeJSON(data)
	case ".hcl":
		return config.DecodeHCL(filepath.Base(filePath), data)
	}
	return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(filePath))
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	cfg, err := decode(filePath, data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if err := engine.ValidateGameConfig(cfg); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	// A mole field that never cycles within a round is a static board
	cycles := cfg.TimerSeconds / cfg.MoleVisibleSeconds
	if cycles < 1 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("mole_visible_seconds (%g) exceeds timer_seconds (%g): moles never respawn", cfg.MoleVisibleSeconds, cfg.TimerSeconds))
		return result
	}

	density := float64(cfg.SimultaneousMoles) / float64(cfg.Capacity())
	cellWidth, cellHeight := cfg.CellSize()

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", cfg.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", cfg.Rows, cfg.Columns))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Moles: %d of %d cells (%.0f%%)", cfg.SimultaneousMoles, cfg.Capacity(), density*100))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Round: %gs, %.1f spawn cycles", cfg.TimerSeconds, cycles))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Cell size: %.1fx%.1f px", cellWidth, cellHeight))
	if density > denseThreshold {
		result.Errors = append(result.Errors, "⚠ More than half the board is moles; hits are easy")
	}

	return result
}

// validateDir validates every JSON and HCL file in dir, sorted by name
func validateDir(dir string) ([]ValidationResult, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.hcl"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("error finding config files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateConfig(file))
	}
	return results, nil
}

// printReport writes a concise report and returns whether every file is valid
func printReport(results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
	}
	return allValid
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate whack-a-mole configuration files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			results, err := validateDir(cmd.String("dir"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if len(results) == 0 {
				return cli.Exit("no configuration files found in "+cmd.String("dir"), 1)
			}
			if !printReport(results) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
