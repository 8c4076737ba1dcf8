// Command analyze prints quick, human-readable heuristics about the game
// configurations in the project's configs directory: board size, mole
// density, spawn cycles per round, the best possible score and how fast a
// player has to click to reach it.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/molegame/game/config"
	"github.com/wricardo/mcp-training/molegame/game/engine"
)

// Analysis holds the derived numbers for one configuration
type Analysis struct {
	Cells          int
	Density        float64
	Cycles         int     // mole sets shown in one round
	MaxScore       int     // every mole of every cycle hit
	ClicksPerSec   float64 // click rate needed to clear every cycle
	SecondsPerMole float64
	Difficulty     string
}

// Difficulty bands by required click rate
const (
	easyClickRate   = 1.0
	mediumClickRate = 2.5
)

// analyze derives heuristics from a validated configuration. Moles are
// spawned at the start of the round and then once per visible period until
// the timer expires.
func analyze(cfg *engine.GameConfig) Analysis {
	cycles := int(math.Ceil(cfg.TimerSeconds / cfg.MoleVisibleSeconds))
	rate := float64(cfg.SimultaneousMoles) / cfg.MoleVisibleSeconds

	a := Analysis{
		Cells:          cfg.Capacity(),
		Density:        float64(cfg.SimultaneousMoles) / float64(cfg.Capacity()),
		Cycles:         cycles,
		MaxScore:       cycles * cfg.SimultaneousMoles,
		ClicksPerSec:   rate,
		SecondsPerMole: cfg.MoleVisibleSeconds / float64(cfg.SimultaneousMoles),
	}

	switch {
	case rate <= easyClickRate:
		a.Difficulty = "easy"
	case rate <= mediumClickRate:
		a.Difficulty = "medium"
	default:
		a.Difficulty = "hard"
	}
	return a
}

func printAnalysis(w io.Writer, id string, cfg *engine.GameConfig) {
	a := analyze(cfg)

	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", id)
	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Grid: %d x %d (%d cells)\n", cfg.Rows, cfg.Columns, a.Cells)
	fmt.Fprintf(w, "Moles: %d at a time (%.0f%% of the board)\n", cfg.SimultaneousMoles, a.Density*100)
	fmt.Fprintf(w, "Round: %gs, moles move every %gs (%d cycles)\n", cfg.TimerSeconds, cfg.MoleVisibleSeconds, a.Cycles)
	fmt.Fprintf(w, "Best possible score: %d\n", a.MaxScore)
	fmt.Fprintf(w, "Needed pace: %.2f clicks/s (%.2fs per mole)\n", a.ClicksPerSec, a.SecondsPerMole)

	switch a.Difficulty {
	case "hard":
		fmt.Fprintf(w, "⚠️  Hard: clearing every cycle needs more than %.1f clicks/s\n", mediumClickRate)
	case "medium":
		fmt.Fprintf(w, "🟡 Medium\n")
	default:
		fmt.Fprintf(w, "✅ Easy: every mole can be reached at a relaxed pace\n")
	}
}

// run analyzes every valid configuration in dir
func run(w io.Writer, dir string) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return fmt.Errorf("no valid configurations in %s", dir)
	}

	for _, info := range configs {
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(w, "\n=== %s ===\nError loading: %v\n", info.ConfigID, err)
			continue
		}
		printAnalysis(w, info.Filename, cfg)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Print difficulty heuristics for game configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(os.Stdout, cmd.String("dir"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
