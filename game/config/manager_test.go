package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/trivia-journey/game/engine"
)

func createValidConfig(name string) *engine.Tuning {
	return &engine.Tuning{
		Name:         name,
		Description:  "Test preset",
		TimerSeconds: 30,
		TileValues:   []int{100, 300},
		AI: engine.AITuning{
			SuccessByLevel: map[int]float64{1: 0.5, 2: 0.4, 3: 0.3},
			ThinkMs:        [2]int{500, 900},
		},
		SettleMs:        600,
		AcceptThreshold: 0.7,
		DistractorCount: 3,
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.Tuning) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRawFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "normal", createValidConfig("normal"))

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault() == nil {
			t.Fatal("Expected default config to be loaded")
		}
		if manager.GetDefault().TimerSeconds != 30 {
			t.Errorf("Expected timer from normal.json, got %d", manager.GetDefault().TimerSeconds)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("missing default config", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		def := manager.GetDefault()
		if def.Name != DefaultName || def.TimerSeconds != engine.DefaultTimerSeconds {
			t.Errorf("Expected built-in normal preset, got %+v", def)
		}
	})

	t.Run("broken default config", func(t *testing.T) {
		dir := t.TempDir()
		writeRawFile(t, dir, "normal.json", "{not json")
		if _, err := NewManager(dir); err == nil {
			t.Error("Expected error for unreadable normal.json")
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "easy", createValidConfig("whatever"))
	invalid := createValidConfig("slow")
	invalid.TimerSeconds = 1
	writeConfigFile(t, dir, "slow", invalid)
	writeRawFile(t, dir, "broken.json", `{"name": "broken", "timer_seconds": }`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "easy" {
			t.Errorf("Expected name to follow the file name, got '%s'", config.Name)
		}
		if config.AI.SuccessByLevel[2] != 0.4 {
			t.Errorf("Expected level 2 success 0.4, got %v", config.AI.SuccessByLevel[2])
		}
	})

	t.Run("load with .json extension and case", func(t *testing.T) {
		config, err := manager.LoadConfig("EASY.json")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "easy" {
			t.Errorf("Expected 'easy', got '%s'", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("easy")
		second, _ := manager.LoadConfig("easy")
		if first != second {
			t.Error("Expected cached config to be returned")
		}
	})

	t.Run("tuning returns a copy", func(t *testing.T) {
		tuning, err := manager.Tuning("easy")
		if err != nil {
			t.Fatalf("Failed to get tuning: %v", err)
		}
		tuning.AI.SuccessByLevel[1] = 0
		cached, _ := manager.LoadConfig("easy")
		if cached.AI.SuccessByLevel[1] != 0.5 {
			t.Error("Expected cached preset to be unaffected by changes to the copy")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		if _, err := manager.LoadConfig("nightmare"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("reject path names", func(t *testing.T) {
		if _, err := manager.LoadConfig("../normal"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		if _, err := manager.LoadConfig("slow"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		if _, err := manager.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "hard", createValidConfig("hard"))
	writeConfigFile(t, dir, "easy", createValidConfig("easy"))
	writeRawFile(t, dir, "broken.json", "{")
	writeRawFile(t, dir, "notes.txt", "ignore me")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	want := []string{"easy", "hard", "normal"}
	if len(configs) != len(want) {
		t.Fatalf("Expected %d configs, got %d", len(want), len(configs))
	}
	for i, id := range want {
		if configs[i].ID != id {
			t.Errorf("Expected config %d to be '%s', got '%s'", i, id, configs[i].ID)
		}
	}
	if configs[0].TimerSeconds != 30 || len(configs[0].TileValues) != 2 {
		t.Errorf("Expected easy details, got %+v", configs[0])
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "hard", createValidConfig("hard"))
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("hard"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "hard" {
		t.Errorf("Expected default 'hard', got '%s'", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("valid config", func(t *testing.T) {
		if err := manager.SaveConfig("Custom", createValidConfig("ignored")); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "custom.json")); err != nil {
			t.Errorf("Expected custom.json to be written: %v", err)
		}
		config, err := manager.LoadConfig("custom")
		if err != nil {
			t.Fatalf("Failed to load saved config: %v", err)
		}
		if config.Name != "custom" {
			t.Errorf("Expected name 'custom', got '%s'", config.Name)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		if err := manager.SaveConfig("a/b", createValidConfig("x")); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		bad := createValidConfig("bad")
		bad.TileValues = []int{200, 200}
		if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
			t.Error("Expected invalid preset not to be written")
		}
	})

	t.Run("nil config", func(t *testing.T) {
		if err := manager.SaveConfig("nil", nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "easy", createValidConfig("easy"))
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	before, _ := manager.LoadConfig("easy")
	if before.TimerSeconds != 30 {
		t.Fatalf("Expected timer 30, got %d", before.TimerSeconds)
	}

	changed := createValidConfig("easy")
	changed.TimerSeconds = 45
	writeConfigFile(t, dir, "easy", changed)

	cached, _ := manager.LoadConfig("easy")
	if cached.TimerSeconds != 30 {
		t.Errorf("Expected cached timer 30, got %d", cached.TimerSeconds)
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	after, _ := manager.LoadConfig("easy")
	if after.TimerSeconds != 45 {
		t.Errorf("Expected refreshed timer 45, got %d", after.TimerSeconds)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"easy", "normal", "hard"} {
		writeConfigFile(t, dir, name, createValidConfig(name))
	}
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 10; i++ {
		for _, name := range []string{"easy", "normal", "hard"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if _, err := manager.LoadConfig(name); err != nil {
					errs <- err
				}
			}(name)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent access error: %v", err)
	}
}

func TestManager_ShippedPresets(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	easy, err := manager.LoadConfig("easy")
	if err != nil {
		t.Fatalf("Failed to load easy: %v", err)
	}
	hard, err := manager.LoadConfig("hard")
	if err != nil {
		t.Fatalf("Failed to load hard: %v", err)
	}
	for level := engine.MinLevel; level <= engine.MaxLevel; level++ {
		if easy.AI.SuccessByLevel[level] >= hard.AI.SuccessByLevel[level] {
			t.Errorf("Expected the hard AI to be stronger on level %d", level)
		}
	}
	if easy.TimerSeconds <= hard.TimerSeconds {
		t.Errorf("Expected easy to give more time than hard, got %d vs %d", easy.TimerSeconds, hard.TimerSeconds)
	}
}
