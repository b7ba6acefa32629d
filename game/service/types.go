package service

import (
	"time"

	"github.com/wricardo/trivia-journey/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string               `json:"id"`
	Difficulty     string               `json:"difficulty"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	AIPhase        engine.AIPhase       `json:"ai_phase"`
	State          *engine.SessionState `json:"state"`
	Question       *QuestionView        `json:"question,omitempty"`
	Tuning         *engine.Tuning       `json:"tuning,omitempty"`
}

// CommandResult is returned by commands that only move the session along
type CommandResult struct {
	Events []engine.Event       `json:"events"`
	State  *engine.SessionState `json:"state"`
}

// QuestionView is an open question as shown to the player. It never carries
// the answer.
type QuestionView struct {
	Level            int       `json:"level"`
	Category         string    `json:"category"`
	Value            int       `json:"value"`
	QuestionID       string    `json:"question_id"`
	Prompt           string    `json:"prompt"`
	Choices          []string  `json:"choices"`
	OpenedAt         time.Time `json:"opened_at"`
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// NewQuestionView hides the answer of an open question
func NewQuestionView(a *engine.ActiveQuestion, now time.Time) *QuestionView {
	if a == nil {
		return nil
	}
	remaining := int(a.Deadline.Sub(now).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return &QuestionView{
		Level:            a.Level,
		Category:         a.Category,
		Value:            a.Value,
		QuestionID:       string(a.Question.ID),
		Prompt:           a.Question.Question,
		Choices:          append([]string(nil), a.Choices...),
		OpenedAt:         a.OpenedAt,
		Deadline:         a.Deadline,
		RemainingSeconds: remaining,
	}
}

// QuestionResult is returned when a tile is opened
type QuestionResult struct {
	Question *QuestionView        `json:"question"`
	Events   []engine.Event       `json:"events"`
	State    *engine.SessionState `json:"state"`
}

// AnswerResult is returned when the open question is resolved
type AnswerResult struct {
	Resolution *engine.Resolution   `json:"resolution"`
	State      *engine.SessionState `json:"state"`
}

// AITurnResult is returned when an AI turn is requested
type AITurnResult struct {
	Started  bool                 `json:"started"`
	Level    int                  `json:"level,omitempty"`
	Category string               `json:"category,omitempty"`
	Value    int                  `json:"value,omitempty"`
	DelayMs  int64                `json:"delay_ms,omitempty"`
	Events   []engine.Event       `json:"events,omitempty"`
	State    *engine.SessionState `json:"state"`
}

// PracticeInfo is the warm-up question without its answer
type PracticeInfo struct {
	QuestionID string   `json:"question_id"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
}

// PracticeResult tells whether a warm-up choice was right
type PracticeResult struct {
	Correct bool   `json:"correct"`
	Answer  string `json:"answer"`
}

// DifficultyInfo provides information about a difficulty preset
type DifficultyInfo struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	TimerSeconds int             `json:"timer_seconds"`
	TileValues   []int           `json:"tile_values"`
	AISuccess    map[int]float64 `json:"ai_success_by_level"`
	ThinkMs      [2]int          `json:"ai_think_ms"`
}

// NewDifficultyInfo summarizes a preset
func NewDifficultyInfo(t *engine.Tuning) *DifficultyInfo {
	success := make(map[int]float64, len(t.AI.SuccessByLevel))
	for l, p := range t.AI.SuccessByLevel {
		success[l] = p
	}
	return &DifficultyInfo{
		ID:           t.Name,
		Description:  t.Description,
		TimerSeconds: t.TimerSeconds,
		TileValues:   t.SortedTileValues(),
		AISuccess:    success,
		ThinkMs:      t.AI.ThinkMs,
	}
}

// LevelCoverage reports how a level's board resolves against the catalog
type LevelCoverage struct {
	Level    int                   `json:"level"`
	City     string                `json:"city"`
	Playable int                   `json:"playable"`
	Total    int                   `json:"total"`
	Tiles    []engine.TileCoverage `json:"tiles"`
}

// CoverageReport checks a catalog against a preset's tile values
type CoverageReport struct {
	Difficulty string          `json:"difficulty"`
	Questions  int             `json:"questions"`
	Categories []string        `json:"categories"`
	Levels     []LevelCoverage `json:"levels"`
	Problems   []string        `json:"problems,omitempty"`
}
