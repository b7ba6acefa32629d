package main

import (
	"sort"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
)

// Strategy decides which tile to open next and how to answer it. With a
// catalog it answers from the answer key; without one it guesses among the
// offered choices, and gives up when there are none.
type Strategy struct {
	answers map[engine.QuestionID]string
	rng     engine.Source
	// Every nth known answer is deliberately guessed instead, 0 disables
	missEvery int
	known     int
}

func NewStrategy(catalog *engine.Catalog, seed uint32, missEvery int) *Strategy {
	s := &Strategy{
		answers:   map[engine.QuestionID]string{},
		rng:       engine.NewPRNG(seed),
		missEvery: missEvery,
	}
	if catalog != nil {
		for _, q := range catalog.Questions {
			s.answers[q.ID] = q.Answer
		}
	}
	return s
}

// Reset starts a new run
func (s *Strategy) Reset() {
	s.known = 0
}

// NextTile picks the highest-value ready tile, breaking ties by board order.
// It returns false when nothing on the board can be opened right now.
func (s *Strategy) NextTile(board *engine.BoardView) (engine.TileView, bool) {
	var ready []engine.TileView
	for _, col := range board.Columns {
		for _, tv := range col {
			if tv.Status == engine.TileReady {
				ready = append(ready, tv)
			}
		}
	}
	if len(ready) == 0 {
		return engine.TileView{}, false
	}
	sort.SliceStable(ready, func(i, j int) bool { return ready[i].Value > ready[j].Value })
	return ready[0], true
}

// Answer returns how to answer q. ok is false when the strategy would rather
// give up.
func (s *Strategy) Answer(q *service.QuestionView) (mode engine.AnswerMode, answer string, ok bool) {
	if a, known := s.answers[engine.QuestionID(q.QuestionID)]; known {
		s.known++
		if s.missEvery <= 0 || s.known%s.missEvery != 0 {
			return engine.ModeText, a, true
		}
	}
	if len(q.Choices) == 0 {
		return "", "", false
	}
	i := int(s.rng.Next() * float64(len(q.Choices)))
	if i >= len(q.Choices) {
		i = len(q.Choices) - 1
	}
	return engine.ModeChoice, q.Choices[i], true
}
