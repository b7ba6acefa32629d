package engine

import (
	"math"
	"time"
)

// AIPhase is the opponent's turn state
type AIPhase string

const (
	AIIdle     AIPhase = "idle"
	AIThinking AIPhase = "thinking"
	AIResolved AIPhase = "resolved"
)

// AITurn is a claimed tile awaiting resolution after Delay
type AITurn struct {
	Level int           `json:"level"`
	Tile  Tile          `json:"tile"`
	Delay time.Duration `json:"delay"`
}

// ScheduledOutcome is a resolved AI turn for the session to apply
type ScheduledOutcome struct {
	Level    int           `json:"level"`
	Category string        `json:"category"`
	Value    int           `json:"value"`
	Question Question      `json:"question"`
	Correct  bool          `json:"correct"`
	Delay    time.Duration `json:"delay"`
}

// AIOpponent picks and resolves tiles for the automated player. It holds no
// PRNG of its own; draws come from the session's generator.
type AIOpponent struct {
	tuning AITuning
	phase  AIPhase
	turn   *AITurn
}

// NewAIOpponent creates an idle opponent
func NewAIOpponent(tuning AITuning) *AIOpponent {
	return &AIOpponent{tuning: tuning, phase: AIIdle}
}

// Phase returns the current state
func (a *AIOpponent) Phase() AIPhase {
	return a.phase
}

// Retune replaces the opponent's accuracy and pacing
func (a *AIOpponent) Retune(tuning AITuning) {
	a.tuning = tuning
}

// Claimed returns the tile under deliberation, if any
func (a *AIOpponent) Claimed() (int, TileKey, bool) {
	if a.phase != AIThinking || a.turn == nil {
		return 0, TileKey{}, false
	}
	return a.turn.Level, a.turn.Tile.Key(), true
}

// SuccessProbability returns the chance the AI answers correctly at level
func (a *AIOpponent) SuccessProbability(level int) float64 {
	if p, ok := a.tuning.SuccessByLevel[level]; ok {
		return p
	}
	return DefaultAISuccess
}

// TileWeight is the selection weight of a tile: value^1.25
func TileWeight(value int) float64 {
	return math.Pow(float64(value), AITileWeightExponent)
}

// TakeTurn picks a tile from available and claims it. It consumes two draws
// (tile pick, think time) and returns false without drawing when nothing is
// available or a turn is already in progress.
func (a *AIOpponent) TakeTurn(level int, available []Tile, rng Source) (AITurn, bool) {
	if a.phase == AIThinking || len(available) == 0 {
		return AITurn{}, false
	}
	weights := make([]float64, len(available))
	for i, t := range available {
		weights[i] = TileWeight(t.Value)
	}
	tile, _ := WeightedPick(available, weights, rng)

	lo, hi := float64(a.tuning.ThinkMs[0]), float64(a.tuning.ThinkMs[1])
	ms := lerp(lo, hi, rng.Next())
	turn := AITurn{
		Level: level,
		Tile:  tile,
		Delay: time.Duration(ms * float64(time.Millisecond)),
	}
	a.turn = &turn
	a.phase = AIThinking
	return turn, true
}

// Resolve draws the AI's correctness for the claimed tile. It consumes one draw.
func (a *AIOpponent) Resolve(rng Source) (ScheduledOutcome, error) {
	if a.phase != AIThinking || a.turn == nil {
		return ScheduledOutcome{}, ErrNoAITurn
	}
	t := a.turn
	correct := rng.Next() < a.SuccessProbability(t.Level)
	a.phase = AIResolved
	a.turn = nil
	return ScheduledOutcome{
		Level:    t.Level,
		Category: t.Tile.Category,
		Value:    t.Tile.Value,
		Question: t.Tile.Question,
		Correct:  correct,
		Delay:    t.Delay,
	}, nil
}

// Cancel drops any pending turn
func (a *AIOpponent) Cancel() {
	a.phase = AIIdle
	a.turn = nil
}
