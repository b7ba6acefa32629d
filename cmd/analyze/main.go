// Command analyze prints quick, human-readable heuristics about the difficulty
// presets in the project's configs directory against the question catalog. For
// each preset it summarizes the timer and board values, how many tiles each
// city can actually offer, and the money the AI opponent would be expected to
// make if it played every playable tile of a city.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/wricardo/trivia-journey/game/config"
	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
)

// CityAnalysis holds the heuristics for one city under one preset
type CityAnalysis struct {
	Level      int
	City       string
	Playable   int
	Total      int
	MaxMoney   int
	AISuccess  float64
	AIExpected float64
}

// expectedMoney is the AI's expected score over the given tiles: each tile
// pays +value with probability p and -value otherwise.
func expectedMoney(tiles []engine.TileCoverage, p float64) (ceiling int, expected float64) {
	for _, tc := range tiles {
		if tc.Source == engine.SourceMissing {
			continue
		}
		ceiling += tc.Value
		expected += float64(tc.Value) * (2*p - 1)
	}
	return ceiling, expected
}

func analyzeTuning(catalog *engine.Catalog, tuning *engine.Tuning) ([]CityAnalysis, []string) {
	report := service.BuildCoverage(catalog, tuning)
	cities := make([]CityAnalysis, 0, len(report.Levels))
	for _, lc := range report.Levels {
		p := tuning.AI.SuccessByLevel[lc.Level]
		ceiling, expected := expectedMoney(lc.Tiles, p)
		cities = append(cities, CityAnalysis{
			Level:      lc.Level,
			City:       lc.City,
			Playable:   lc.Playable,
			Total:      lc.Total,
			MaxMoney:   ceiling,
			AISuccess:  p,
			AIExpected: expected,
		})
	}
	return cities, report.Problems
}

func analyze(w io.Writer, configDir, catalogPath string) error {
	catalog, err := engine.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	configs, err := config.NewManager(configDir)
	if err != nil {
		return err
	}

	presets, err := configs.ListConfigs()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Catalog: %d questions, %d categories\n", len(catalog.Questions), len(catalog.Categories))

	for _, info := range presets {
		tuning, err := configs.Tuning(info.ID)
		if err != nil {
			fmt.Fprintf(w, "\n=== %s ===\nError loading preset: %v\n", info.ID, err)
			continue
		}

		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", tuning.Name)
		fmt.Fprintf(w, "Description: %s\n", tuning.Description)
		fmt.Fprintf(w, "Timer: %ds\n", tuning.TimerSeconds)
		fmt.Fprintf(w, "Tile Values: %v\n", tuning.SortedTileValues())
		fmt.Fprintf(w, "AI Think Time: %d-%dms\n", tuning.AI.ThinkMs[0], tuning.AI.ThinkMs[1])

		cities, problems := analyzeTuning(catalog, tuning)
		for _, c := range cities {
			fmt.Fprintf(w, "  L%d %-10s %2d/%2d tiles, max $%d, AI p=%.2f expects $%.0f\n",
				c.Level, c.City, c.Playable, c.Total, c.MaxMoney, c.AISuccess, c.AIExpected)
		}
		for _, p := range problems {
			fmt.Fprintf(w, "  ⚠️  %s\n", p)
		}
	}
	return nil
}

func main() {
	configDir := "configs"
	catalogPath := "data/questions.json"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		catalogPath = os.Args[2]
	}

	if err := analyze(os.Stdout, configDir, catalogPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
