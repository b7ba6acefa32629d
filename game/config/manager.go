package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultName is the preset used when none is requested
const DefaultName = "normal"

// Manager handles difficulty preset loading and caching. A preset's name is
// its file name without the .json extension.
type Manager struct {
	configDir     string
	defaultConfig *engine.Tuning
	configs       map[string]*engine.Tuning
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Tuning),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

func presetName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".json")
}

// validName rejects names that could leave the config directory
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// LoadConfig loads a preset by name. The built-in normal preset answers for
// "normal" when no file provides it.
func (m *Manager) LoadConfig(name string) (*engine.Tuning, error) {
	name = presetName(name)
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}

	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	configPath := filepath.Join(m.configDir, name+".json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			if name == DefaultName {
				config := engine.DefaultTuning()
				m.configs[name] = config
				return config, nil
			}
			return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.ParseTuning(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	config.Name = name

	m.configs[name] = config
	return config, nil
}

// Tuning returns a private copy of a preset, for sessions to own
func (m *Manager) Tuning(name string) (*engine.Tuning, error) {
	config, err := m.LoadConfig(name)
	if err != nil {
		return nil, err
	}
	return config.Clone(), nil
}

// ListConfigs returns information about all available presets. Invalid
// files are skipped.
func (m *Manager) ListConfigs() ([]*service.DifficultyInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.DifficultyInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := presetName(entry.Name())
		config, err := m.LoadConfig(name)
		if err != nil {
			continue
		}
		seen[name] = true
		configs = append(configs, service.NewDifficultyInfo(config))
	}

	if !seen[DefaultName] {
		if config, err := m.LoadConfig(DefaultName); err == nil {
			configs = append(configs, service.NewDifficultyInfo(config))
		}
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *engine.Tuning {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Tuning)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates a preset and writes it to disk
func (m *Manager) SaveConfig(name string, config *engine.Tuning) error {
	name = presetName(name)
	if !validName(name) {
		return fmt.Errorf("%w: invalid preset name %q", ErrInvalidConfig, name)
	}
	if config == nil {
		return fmt.Errorf("%w: preset is nil", ErrInvalidConfig)
	}
	saved := config.Clone()
	saved.Name = name
	if err := engine.ValidateTuning(saved); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, name+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = saved
	m.mu.Unlock()

	return nil
}
