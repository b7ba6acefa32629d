package session

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/wricardo/trivia-journey/game/engine"
)

// SchemaVersion is the snapshot envelope version written by Encode
const SchemaVersion = 2

// Snapshot is the persisted form of a session
type Snapshot struct {
	SchemaVersion  int                  `json:"schema_version"`
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	State          *engine.SessionState `json:"state"`
}

// EncodeSnapshot marshals a snapshot with indentation for readability
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	if snap == nil || snap.State == nil {
		return nil, fmt.Errorf("snapshot cannot be empty")
	}
	out := *snap
	out.SchemaVersion = SchemaVersion
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored snapshot. Missing fields are backfilled and
// the unlock chain is repaired. Version 1 snapshots, the raw browser save
// object, are migrated. Anything unreadable fails with ErrPersistenceCorrupt.
func DecodeSnapshot(data []byte, now time.Time) (*Snapshot, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	if probe == nil {
		return nil, fmt.Errorf("%w: empty document", ErrPersistenceCorrupt)
	}

	version := 1
	if raw, ok := probe["schema_version"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return nil, fmt.Errorf("%w: schema_version: %v", ErrPersistenceCorrupt, err)
		}
	}

	switch version {
	case 1:
		return migrateLegacy(data, now)
	case SchemaVersion:
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
		}
		if snap.State == nil {
			return nil, fmt.Errorf("%w: missing state", ErrPersistenceCorrupt)
		}
		if snap.ID == "" {
			snap.ID = snap.State.SessionID
		}
		snap.State.SessionID = snap.ID
		if snap.CreatedAt.IsZero() {
			snap.CreatedAt = now
		}
		if snap.LastAccessedAt.IsZero() {
			snap.LastAccessedAt = snap.CreatedAt
		}
		engine.NormalizeState(snap.State, now)
		return &snap, nil
	default:
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrPersistenceCorrupt, version)
	}
}

type legacySettings struct {
	SFX          *bool  `json:"sfx"`
	Music        *bool  `json:"music"`
	Theme        string `json:"theme"`
	Contrast     bool   `json:"contrast"`
	ReduceMotion bool   `json:"reduceMotion"`
}

type legacyTile struct {
	By      string            `json:"by"`
	Correct bool              `json:"correct"`
	TimeMs  *float64          `json:"timeMs"`
	ID      engine.QuestionID `json:"id"`
}

type legacyStats struct {
	Correct    int                         `json:"correct"`
	Incorrect  int                         `json:"incorrect"`
	FastestMs  *float64                    `json:"fastestMs"`
	BestValue  int                         `json:"bestValue"`
	Start      float64                     `json:"start"`
	Streak     int                         `json:"streak"`
	BestStreak int                         `json:"bestStreak"`
	City       map[string]engine.CityStats `json:"city"`
}

type legacyState struct {
	Nickname     string                           `json:"nickname"`
	Settings     *legacySettings                  `json:"settings"`
	Scores       engine.Scoreboard                `json:"scores"`
	Unlocked     map[string]bool                  `json:"unlocked"`
	Completed    map[string]bool                  `json:"completed"`
	CurrentLevel int                              `json:"currentLevel"`
	Tiles        map[string]map[string]legacyTile `json:"tiles"`
	Stats        *legacyStats                     `json:"stats"`
	AISeed       float64                          `json:"aiSeed"`
	SessionID    string                           `json:"sessionId"`
}

func msPtr(f *float64) *int64 {
	if f == nil {
		return nil
	}
	ms := int64(math.Round(*f))
	return &ms
}

// legacySeed reduces a millisecond timestamp seed to 32 bits the way the
// browser build's integer coercion did
func legacySeed(f float64) uint32 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(uint64(int64(f)))
}

func migrateLegacy(data []byte, now time.Time) (*Snapshot, error) {
	var old legacyState
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("%w: legacy snapshot: %v", ErrPersistenceCorrupt, err)
	}
	if old.Unlocked == nil && old.Tiles == nil && old.Stats == nil && old.Nickname == "" {
		return nil, fmt.Errorf("%w: unrecognized document", ErrPersistenceCorrupt)
	}

	seed := legacySeed(old.AISeed)
	if seed == 0 {
		seed = engine.SeedFromTime(now)
	}
	s := engine.NewState(old.SessionID, seed, now)
	s.Nickname = old.Nickname
	s.Scores = old.Scores
	if old.CurrentLevel != 0 {
		s.CurrentLevel = old.CurrentLevel
	}
	if old.Settings != nil {
		if old.Settings.SFX != nil {
			s.Settings.SFX = *old.Settings.SFX
		}
		if old.Settings.Music != nil {
			s.Settings.Music = *old.Settings.Music
		}
		s.Settings.Theme = old.Settings.Theme
		s.Settings.HighContrast = old.Settings.Contrast
		s.Settings.ReduceMotion = old.Settings.ReduceMotion
	}

	for key, unlocked := range old.Unlocked {
		if l, err := strconv.Atoi(key); err == nil && s.Levels[l] != nil {
			s.Levels[l].Unlocked = unlocked
		}
	}
	for key, completed := range old.Completed {
		if l, err := strconv.Atoi(key); err == nil && s.Levels[l] != nil {
			s.Levels[l].Completed = completed
		}
	}
	for key, tiles := range old.Tiles {
		l, err := strconv.Atoi(key)
		if err != nil || s.Levels[l] == nil {
			continue
		}
		for tileKey, t := range tiles {
			by := engine.PartyPlayer
			if t.By == string(engine.PartyAI) {
				by = engine.PartyAI
			}
			s.Levels[l].Tiles[tileKey] = engine.TileRecord{
				PlayedBy:   by,
				Correct:    t.Correct,
				ElapsedMs:  msPtr(t.TimeMs),
				QuestionID: t.ID,
			}
		}
	}

	if st := old.Stats; st != nil {
		s.Stats.Correct = st.Correct
		s.Stats.Incorrect = st.Incorrect
		s.Stats.Streak = st.Streak
		s.Stats.BestStreak = st.BestStreak
		s.Stats.BestValue = st.BestValue
		s.Stats.FastestMs = msPtr(st.FastestMs)
		if st.Start > 0 {
			s.Stats.StartedAt = time.UnixMilli(int64(st.Start))
		}
		for key, c := range st.City {
			if l, err := strconv.Atoi(key); err == nil && s.Stats.PerCity[l] != nil {
				cs := c
				s.Stats.PerCity[l] = &cs
			}
		}
	}

	if s.Nickname != "" {
		s.Screen = engine.ScreenMap
	}
	engine.NormalizeState(s, now)

	return &Snapshot{
		SchemaVersion:  SchemaVersion,
		ID:             old.SessionID,
		CreatedAt:      s.Stats.StartedAt,
		LastAccessedAt: now,
		State:          s,
	}, nil
}
