package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

const (
	DefaultTimerSeconds    = 24
	DefaultSettleMs        = 600
	DefaultAcceptThreshold = 0.72
	DefaultDistractorCount = 3

	MinTimerSeconds = 5
	MaxTimerSeconds = 300
	MaxThinkMs      = 60000
	MaxSettleMs     = 60000
)

// AITuning controls the opponent's accuracy and pacing
type AITuning struct {
	SuccessByLevel map[int]float64 `json:"success_by_level"`
	ThinkMs        [2]int          `json:"think_ms"`
}

// Tuning is a difficulty preset
type Tuning struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	TimerSeconds    int      `json:"timer_seconds"`
	TileValues      []int    `json:"tile_values"`
	AI              AITuning `json:"ai"`
	SettleMs        int      `json:"settle_ms"`
	AcceptThreshold float64  `json:"accept_threshold"`
	DistractorCount int      `json:"distractor_count"`
}

// DefaultTuning returns the built-in "normal" preset
func DefaultTuning() *Tuning {
	return &Tuning{
		Name:         "normal",
		Description:  "Balanced opponent, 24 second answer timer",
		TimerSeconds: DefaultTimerSeconds,
		TileValues:   []int{200, 400, 600},
		AI: AITuning{
			SuccessByLevel: map[int]float64{1: 0.78, 2: 0.6, 3: 0.45},
			ThinkMs:        [2]int{900, 1600},
		},
		SettleMs:        DefaultSettleMs,
		AcceptThreshold: DefaultAcceptThreshold,
		DistractorCount: DefaultDistractorCount,
	}
}

// Clone returns a deep copy
func (t *Tuning) Clone() *Tuning {
	c := *t
	c.TileValues = append([]int(nil), t.TileValues...)
	c.AI.SuccessByLevel = make(map[int]float64, len(t.AI.SuccessByLevel))
	for k, v := range t.AI.SuccessByLevel {
		c.AI.SuccessByLevel[k] = v
	}
	return &c
}

// Timer returns the answer countdown duration
func (t *Tuning) Timer() time.Duration {
	return time.Duration(t.TimerSeconds) * time.Second
}

// Settle returns the delay between a resolution and the AI's turn
func (t *Tuning) Settle() time.Duration {
	return time.Duration(t.SettleMs) * time.Millisecond
}

// SortedTileValues returns the board's value columns in ascending order
func (t *Tuning) SortedTileValues() []int {
	v := append([]int(nil), t.TileValues...)
	sort.Ints(v)
	return v
}

// ValidateTuning checks a preset for correctness and playability
func ValidateTuning(t *Tuning) error {
	if t == nil {
		return fmt.Errorf("config validation: tuning is nil")
	}
	if t.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if t.TimerSeconds < MinTimerSeconds || t.TimerSeconds > MaxTimerSeconds {
		return fmt.Errorf("config validation: timer_seconds must be between %d and %d, got %d",
			MinTimerSeconds, MaxTimerSeconds, t.TimerSeconds)
	}

	if len(t.TileValues) == 0 {
		return fmt.Errorf("config validation: tile_values must not be empty")
	}
	seen := make(map[int]bool, len(t.TileValues))
	for _, v := range t.TileValues {
		if v <= 0 {
			return fmt.Errorf("config validation: tile_values must be positive, got %d", v)
		}
		if seen[v] {
			return fmt.Errorf("config validation: duplicate tile value %d", v)
		}
		seen[v] = true
	}

	for level, p := range t.AI.SuccessByLevel {
		if level < MinLevel || level > MaxLevel {
			return fmt.Errorf("config validation: ai.success_by_level has unknown level %d", level)
		}
		if p < 0 || p > 1 {
			return fmt.Errorf("config validation: ai.success_by_level[%d] must be within [0,1], got %g", level, p)
		}
	}

	lo, hi := t.AI.ThinkMs[0], t.AI.ThinkMs[1]
	if lo < 0 || hi < lo || hi > MaxThinkMs {
		return fmt.Errorf("config validation: ai.think_ms must satisfy 0 <= min <= max <= %d, got [%d, %d]",
			MaxThinkMs, lo, hi)
	}
	if t.SettleMs < 0 || t.SettleMs > MaxSettleMs {
		return fmt.Errorf("config validation: settle_ms must be between 0 and %d, got %d", MaxSettleMs, t.SettleMs)
	}
	if t.AcceptThreshold <= 0 || t.AcceptThreshold > 1 {
		return fmt.Errorf("config validation: accept_threshold must be within (0,1], got %g", t.AcceptThreshold)
	}
	if t.DistractorCount < 0 {
		return fmt.Errorf("config validation: distractor_count must not be negative, got %d", t.DistractorCount)
	}

	return nil
}

// LoadTuning loads and validates a preset from a JSON file
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTuning(data)
}

// ParseTuning decodes a preset. Missing fields inherit the normal preset.
func ParseTuning(data []byte) (*Tuning, error) {
	t := DefaultTuning()
	t.Name = ""
	t.Description = ""
	t.AI.SuccessByLevel = nil
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning: %w", err)
	}
	if t.AI.SuccessByLevel == nil {
		t.AI.SuccessByLevel = DefaultTuning().AI.SuccessByLevel
	}
	if err := ValidateTuning(t); err != nil {
		return nil, err
	}
	return t, nil
}
