package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/trivia-journey/game/engine"
)

const testCatalog = `{
	"categories": ["History", "Geography"],
	"levels": [{"id": 1, "name": "Quito"}, {"id": 2, "name": "Guayaquil"}, {"id": 3, "name": "Cuenca"}],
	"questions": [
		{"id": 1, "level": 1, "category": "History", "value": 200, "question": "Capital?", "answer": "Quito"},
		{"id": 2, "level": 1, "category": "History", "value": 400, "question": "Year?", "answer": "1809"},
		{"id": 3, "level": 1, "category": "Geography", "value": 200, "question": "Volcano?", "answer": "Pichincha"},
		{"id": 4, "level": 2, "category": "History", "value": 200, "question": "Port?", "answer": "Guayaquil"}
	]
}`

const testPreset = `{
	"name": "normal",
	"description": "Test preset",
	"timer_seconds": 25,
	"tile_values": [200, 400],
	"ai": {"success_by_level": {"1": 0.75, "2": 0.5, "3": 0.25}, "think_ms": [1000, 2000]},
	"settle_ms": 600,
	"accept_threshold": 0.7,
	"distractor_count": 3
}`

func TestExpectedMoney(t *testing.T) {
	tiles := []engine.TileCoverage{
		{Value: 200, Source: engine.SourceDirect},
		{Value: 400, Source: engine.SourceFallback},
		{Value: 600, Source: engine.SourceMissing},
	}

	tests := []struct {
		p        float64
		expected float64
	}{
		{1, 600},
		{0.5, 0},
		{0, -600},
		{0.75, 300},
	}

	for _, test := range tests {
		ceiling, expected := expectedMoney(tiles, test.p)
		if ceiling != 600 {
			t.Errorf("Expected ceiling 600 without missing tiles, got %d", ceiling)
		}
		if math.Abs(expected-test.expected) > 1e-9 {
			t.Errorf("expectedMoney(p=%.2f) = %.2f, expected %.2f", test.p, expected, test.expected)
		}
	}
}

func TestAnalyzeTuning(t *testing.T) {
	catalog, err := engine.ParseCatalog([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Failed to parse catalog: %v", err)
	}
	tuning, err := engine.ParseTuning([]byte(testPreset))
	if err != nil {
		t.Fatalf("Failed to parse preset: %v", err)
	}

	cities, problems := analyzeTuning(catalog, tuning)
	if len(cities) != 3 {
		t.Fatalf("Expected 3 cities, got %d", len(cities))
	}

	quito := cities[0]
	if quito.City != "Quito" || quito.Playable != 3 || quito.Total != 4 {
		t.Errorf("Expected Quito 3/4 playable, got %s %d/%d", quito.City, quito.Playable, quito.Total)
	}
	if quito.MaxMoney != 800 {
		t.Errorf("Expected Quito max $800, got %d", quito.MaxMoney)
	}
	if math.Abs(quito.AIExpected-400) > 1e-9 {
		t.Errorf("Expected AI to make $400 in Quito at p=0.75, got %.2f", quito.AIExpected)
	}

	if cities[2].Playable != 0 {
		t.Errorf("Expected Cuenca to have no playable tiles, got %d", cities[2].Playable)
	}
	found := false
	for _, p := range problems {
		if strings.Contains(p, "level 3 has no playable tiles") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a problem for level 3, got %v", problems)
	}
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "normal.json"), []byte(testPreset), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	catalogPath := filepath.Join(dir, "questions.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	var out bytes.Buffer
	if err := analyze(&out, configDir, catalogPath); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	for _, want := range []string{
		"Catalog: 4 questions, 2 categories",
		"=== Analyzing normal ===",
		"Timer: 25s",
		"L1 Quito",
		"level 3 has no playable tiles",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output, got:\n%s", want, out.String())
		}
	}
}

func TestAnalyze_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing catalog", func(t *testing.T) {
		var out bytes.Buffer
		if err := analyze(&out, dir, filepath.Join(dir, "nope.json")); err == nil {
			t.Error("Expected error for missing catalog")
		}
	})

	t.Run("missing config dir", func(t *testing.T) {
		catalogPath := filepath.Join(dir, "questions.json")
		if err := os.WriteFile(catalogPath, []byte(testCatalog), 0644); err != nil {
			t.Fatalf("Failed to write catalog: %v", err)
		}
		var out bytes.Buffer
		if err := analyze(&out, filepath.Join(dir, "nope"), catalogPath); err == nil {
			t.Error("Expected error for missing config directory")
		}
	})
}
