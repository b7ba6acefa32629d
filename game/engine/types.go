package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Party identifies who played a tile
type Party string

const (
	PartyPlayer Party = "player"
	PartyAI     Party = "ai"
)

// Screen is a node of the session state machine
type Screen string

const (
	ScreenStart    Screen = "start"
	ScreenIntro    Screen = "intro"
	ScreenMap      Screen = "map"
	ScreenBoard    Screen = "board"
	ScreenQuestion Screen = "question"
	ScreenEnd      Screen = "end"
)

// AnswerMode selects how a submitted answer was entered
type AnswerMode string

const (
	ModeText   AnswerMode = "text"
	ModeChoice AnswerMode = "choice"
)

const (
	// Level bounds
	MinLevel = 1
	MaxLevel = 3

	// StateVersion is the current SessionState schema version
	StateVersion = 2

	// AITileWeightExponent makes the AI chase bigger tiles super-linearly
	AITileWeightExponent = 1.25

	// DefaultAISuccess is used for levels missing from the success table
	DefaultAISuccess = 0.5
)

// QuestionID identifies a catalog question. Catalogs in the wild use both
// numeric and string ids, so both JSON forms are accepted.
type QuestionID string

// UnmarshalJSON accepts a JSON string or number
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

// Question is an immutable catalog entry
type Question struct {
	ID       QuestionID `json:"id"`
	Level    int        `json:"level"`
	Category string     `json:"category"`
	Value    int        `json:"value"`
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
}

// Level names a city in the catalog
type Level struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TileKey addresses a tile within a level
type TileKey struct {
	Category string
	Value    int
}

// String renders the key the way it is stored in LevelState.Tiles
func (k TileKey) String() string {
	return k.Category + "|" + strconv.Itoa(k.Value)
}

// ParseTileKey parses "<category>|<value>". The category itself may contain '|'.
func ParseTileKey(s string) (TileKey, error) {
	i := strings.LastIndex(s, "|")
	if i < 0 {
		return TileKey{}, fmt.Errorf("invalid tile key %q", s)
	}
	v, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return TileKey{}, fmt.Errorf("invalid tile key %q: %w", s, err)
	}
	return TileKey{Category: s[:i], Value: v}, nil
}

// TileRecord is written exactly once per tile per level
type TileRecord struct {
	PlayedBy   Party      `json:"played_by"`
	Correct    bool       `json:"correct"`
	ElapsedMs  *int64     `json:"elapsed_ms,omitempty"`
	QuestionID QuestionID `json:"question_id"`
}

// LevelState tracks one city's progress
type LevelState struct {
	Unlocked  bool                  `json:"unlocked"`
	Completed bool                  `json:"completed"`
	Tiles     map[string]TileRecord `json:"tiles"`
}

// Scoreboard holds signed money totals
type Scoreboard struct {
	Player int `json:"player"`
	AI     int `json:"ai"`
}

// CityStats aggregates the player's results in one city
type CityStats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Money     int `json:"money"`
}

// RunStats aggregates the player's results across a run
type RunStats struct {
	Correct    int                `json:"correct"`
	Incorrect  int                `json:"incorrect"`
	Streak     int                `json:"streak"`
	BestStreak int                `json:"best_streak"`
	BestValue  int                `json:"best_value"`
	FastestMs  *int64             `json:"fastest_ms"`
	StartedAt  time.Time          `json:"started_at"`
	PerCity    map[int]*CityStats `json:"per_city"`
}

// Settings are presentation preferences persisted with the session
type Settings struct {
	SFX          bool   `json:"sfx"`
	Music        bool   `json:"music"`
	Theme        string `json:"theme"`
	HighContrast bool   `json:"high_contrast"`
	ReduceMotion bool   `json:"reduce_motion"`
}

// SessionState is the unit of persistence
type SessionState struct {
	Version      int                 `json:"version"`
	SessionID    string              `json:"session_id"`
	Nickname     string              `json:"nickname"`
	Settings     Settings            `json:"settings"`
	Scores       Scoreboard          `json:"scores"`
	Levels       map[int]*LevelState `json:"levels"`
	CurrentLevel int                 `json:"current_level"`
	Screen       Screen              `json:"screen"`
	Stats        RunStats            `json:"stats"`
	Seed         uint32              `json:"seed"`
	RNGState     *uint32             `json:"rng_state,omitempty"`
	Difficulty   string              `json:"difficulty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ActiveQuestion is the tile currently open for answering. It is never persisted.
type ActiveQuestion struct {
	Level    int       `json:"level"`
	Category string    `json:"category"`
	Value    int       `json:"value"`
	Question Question  `json:"question"`
	Choices  []string  `json:"choices"`
	OpenedAt time.Time `json:"opened_at"`
	Deadline time.Time `json:"deadline"`
}

// Answer is a player's submission
type Answer struct {
	Mode AnswerMode `json:"mode"`
	Text string     `json:"answer"`
}

// EventType names an outcome the presentation layer can render
type EventType string

const (
	EventScreenChanged   EventType = "screen_changed"
	EventQuestionOpened  EventType = "question_opened"
	EventQuestionClosed  EventType = "question_closed"
	EventTileMarked      EventType = "tile_marked"
	EventScoreChanged    EventType = "score_changed"
	EventStreak          EventType = "streak"
	EventLevelCompleted  EventType = "level_completed"
	EventLevelUnlocked   EventType = "level_unlocked"
	EventGameOver        EventType = "game_over"
	EventAIThinking      EventType = "ai_thinking"
	EventAIResolved      EventType = "ai_resolved"
	EventReplay          EventType = "replay"
	EventReset           EventType = "reset"
	EventSettingsChanged EventType = "settings_changed"
)

// Event is emitted by every state transition
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Level     int       `json:"level,omitempty"`
	Category  string    `json:"category,omitempty"`
	Value     int       `json:"value,omitempty"`
	Party     Party     `json:"party,omitempty"`
	Correct   bool      `json:"correct,omitempty"`
	Delta     int       `json:"delta,omitempty"`
	Screen    Screen    `json:"screen,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
