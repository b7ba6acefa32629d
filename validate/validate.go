// Command validate checks the difficulty presets in ../configs and the
// question catalog in ../data. For presets it checks:
//   - JSON structure and the tuning bounds enforced by the game
//   - The preset name matches its file name
//   - Every tile value can be backed by at least one question
//
// For the catalog it reports structural problems (unknown categories, duplicate
// ids, dangling fallbacks) against the union of all presets' tile values, and
// the number of playable tiles per city.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/trivia-journey/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validatePreset loads a difficulty preset and checks it against the catalog.
// A nil catalog skips the coverage check.
func validatePreset(filePath string, catalog *engine.Catalog) (ValidationResult, *engine.Tuning) {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result, nil
	}

	tuning, err := engine.ParseTuning(data)
	if err != nil {
		result.fail("Invalid preset: %v", err)
		return result, nil
	}

	id := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if !strings.EqualFold(tuning.Name, id) {
		result.fail("Preset name %q does not match file name %q", tuning.Name, id)
	}

	if catalog != nil {
		for _, v := range tuning.SortedTileValues() {
			found := false
			for _, q := range catalog.Questions {
				if q.Value == v {
					found = true
					break
				}
			}
			if !found {
				result.fail("Tile value %d has no question in the catalog", v)
			}
		}
	}

	if result.Valid {
		result.info("timer %ds, tiles %v", tuning.TimerSeconds, tuning.SortedTileValues())
		result.info("AI think %d-%dms", tuning.AI.ThinkMs[0], tuning.AI.ThinkMs[1])
	}
	return result, tuning
}

// validateCatalog checks the catalog against the given board values and
// reports per-city coverage.
func validateCatalog(filePath string, tileValues []int) (ValidationResult, *engine.Catalog) {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result, nil
	}

	catalog, err := engine.ParseCatalog(data)
	if err != nil {
		result.fail("Invalid JSON: %v", err)
		return result, nil
	}

	for _, p := range catalog.Problems(tileValues) {
		result.fail("%s", p)
	}

	for level := engine.MinLevel; level <= engine.MaxLevel; level++ {
		tiles := catalog.Coverage(level, tileValues)
		playable := 0
		for _, tc := range tiles {
			if tc.Source != engine.SourceMissing {
				playable++
			}
		}
		if playable == 0 {
			result.fail("Level %d (%s) has no playable tiles", level, catalog.LevelName(level))
			continue
		}
		result.info("Level %d (%s): %d/%d tiles playable", level, catalog.LevelName(level), playable, len(tiles))
	}

	return result, catalog
}

// unionValues merges the tile values of several presets
func unionValues(tunings []*engine.Tuning) []int {
	seen := map[int]bool{}
	var values []int
	for _, t := range tunings {
		for _, v := range t.TileValues {
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	sort.Ints(values)
	return values
}

func printResult(result ValidationResult) bool {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return true
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
	return false
}

// main validates every preset in ../configs and the catalog in ../data,
// printing a concise report and exiting with non-zero status on any error.
func main() {
	configDir := "../configs"
	catalogPath := "../data/questions.json"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	if len(os.Args) > 2 {
		catalogPath = os.Args[2]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	// First pass without the catalog to collect board values
	var tunings []*engine.Tuning
	for _, file := range files {
		if _, t := validatePreset(file, nil); t != nil {
			tunings = append(tunings, t)
		}
	}

	allValid := true
	catalogResult, catalog := validateCatalog(catalogPath, unionValues(tunings))
	if !printResult(catalogResult) {
		allValid = false
	}

	for _, file := range files {
		result, _ := validatePreset(file, catalog)
		if !printResult(result) {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All presets and the catalog are valid!")
	} else {
		fmt.Println("❌ Some files have errors")
		os.Exit(1)
	}
}
