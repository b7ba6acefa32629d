package engine

import (
	"encoding/json"
	"time"
)

// DefaultSettings returns the settings of a fresh session
func DefaultSettings() Settings {
	return Settings{SFX: true, Music: true, Theme: "dark"}
}

func freshLevels() map[int]*LevelState {
	levels := make(map[int]*LevelState, MaxLevel)
	for l := MinLevel; l <= MaxLevel; l++ {
		levels[l] = &LevelState{Unlocked: l == MinLevel, Tiles: map[string]TileRecord{}}
	}
	return levels
}

func freshStats(now time.Time) RunStats {
	stats := RunStats{StartedAt: now, PerCity: make(map[int]*CityStats, MaxLevel)}
	for l := MinLevel; l <= MaxLevel; l++ {
		stats.PerCity[l] = &CityStats{}
	}
	return stats
}

// NewState builds a default session state
func NewState(sessionID string, seed uint32, now time.Time) *SessionState {
	return &SessionState{
		Version:      StateVersion,
		SessionID:    sessionID,
		Settings:     DefaultSettings(),
		Levels:       freshLevels(),
		CurrentLevel: MinLevel,
		Screen:       ScreenStart,
		Stats:        freshStats(now),
		Seed:         seed,
		RNGState:     &seed,
		Difficulty:   "normal",
		UpdatedAt:    now,
	}
}

// ResetProgress clears scores, boards and stats, keeping identity and settings
func (s *SessionState) ResetProgress(now time.Time) {
	s.Scores = Scoreboard{}
	s.Levels = freshLevels()
	s.Stats = freshStats(now)
	s.CurrentLevel = MinLevel
}

// NormalizeState repairs a decoded state in place: it backfills missing
// collections, enforces the unlock chain, clamps the current level and
// downgrades screens that cannot be restored.
func NormalizeState(s *SessionState, now time.Time) *SessionState {
	if s == nil {
		return NewState("", SeedFromTime(now), now)
	}
	s.Version = StateVersion

	if s.Levels == nil {
		s.Levels = map[int]*LevelState{}
	}
	for l := range s.Levels {
		if l < MinLevel || l > MaxLevel {
			delete(s.Levels, l)
		}
	}
	for l := MinLevel; l <= MaxLevel; l++ {
		ls := s.Levels[l]
		if ls == nil {
			ls = &LevelState{}
			s.Levels[l] = ls
		}
		if ls.Tiles == nil {
			ls.Tiles = map[string]TileRecord{}
		}
	}
	s.Levels[MinLevel].Unlocked = true
	for l := MinLevel + 1; l <= MaxLevel; l++ {
		ls := s.Levels[l]
		ls.Unlocked = s.Levels[l-1].Completed
		if !ls.Unlocked {
			ls.Completed = false
		}
	}

	if s.Stats.PerCity == nil {
		s.Stats.PerCity = map[int]*CityStats{}
	}
	for l := MinLevel; l <= MaxLevel; l++ {
		if s.Stats.PerCity[l] == nil {
			s.Stats.PerCity[l] = &CityStats{}
		}
	}
	if s.Stats.StartedAt.IsZero() {
		s.Stats.StartedAt = now
	}
	if s.Stats.Streak < 0 {
		s.Stats.Streak = 0
	}
	if s.Stats.BestStreak < s.Stats.Streak {
		s.Stats.BestStreak = s.Stats.Streak
	}

	if s.Settings.Theme != "dark" && s.Settings.Theme != "light" {
		s.Settings.Theme = "dark"
	}
	if s.Difficulty == "" {
		s.Difficulty = "normal"
	}
	if s.RNGState == nil {
		seed := s.Seed
		s.RNGState = &seed
	}

	if s.CurrentLevel < MinLevel || s.CurrentLevel > MaxLevel || !s.Levels[s.CurrentLevel].Unlocked {
		s.CurrentLevel = MinLevel
	}

	switch s.Screen {
	case ScreenStart, ScreenIntro, ScreenMap, ScreenEnd:
	case ScreenBoard, ScreenQuestion:
		// an open question is never persisted
		s.Screen = ScreenBoard
	default:
		s.Screen = ScreenStart
	}
	if s.Screen != ScreenStart && s.Nickname == "" {
		s.Screen = ScreenStart
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	return s
}

// Clone returns a deep copy of the state
func (s *SessionState) Clone() *SessionState {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var c SessionState
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}
