package main

import (
	"testing"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
)

func TestStrategy_NextTile(t *testing.T) {
	s := NewStrategy(nil, 1, 0)

	board := &engine.BoardView{
		Columns: [][]engine.TileView{
			{
				{Category: "History", Value: 200, Status: engine.TilePlayed},
				{Category: "History", Value: 400, Status: engine.TileReady},
				{Category: "History", Value: 600, Status: engine.TileClaimed},
			},
			{
				{Category: "Geography", Value: 200, Status: engine.TileReady},
				{Category: "Geography", Value: 400, Status: engine.TileReady},
				{Category: "Geography", Value: 600, Status: engine.TileDisabled},
			},
		},
	}

	tile, ok := s.NextTile(board)
	if !ok {
		t.Fatal("Expected a ready tile")
	}
	if tile.Category != "History" || tile.Value != 400 {
		t.Errorf("Expected History 400 (highest ready, first in board order), got %s %d", tile.Category, tile.Value)
	}

	empty := &engine.BoardView{Columns: [][]engine.TileView{{{Status: engine.TileClaimed}}}}
	if _, ok := s.NextTile(empty); ok {
		t.Error("Expected no tile when nothing is ready")
	}
}

func TestStrategy_Answer(t *testing.T) {
	catalog := &engine.Catalog{Questions: []engine.Question{{ID: "7", Answer: "Quito"}}}

	tests := []struct {
		name       string
		strategy   *Strategy
		question   service.QuestionView
		wantMode   engine.AnswerMode
		wantAnswer string
		wantOK     bool
	}{
		{
			name:       "known answer",
			strategy:   NewStrategy(catalog, 1, 0),
			question:   service.QuestionView{QuestionID: "7", Choices: []string{"Lima", "Quito"}},
			wantMode:   engine.ModeText,
			wantAnswer: "Quito",
			wantOK:     true,
		},
		{
			name:     "unknown without choices gives up",
			strategy: NewStrategy(catalog, 1, 0),
			question: service.QuestionView{QuestionID: "8"},
			wantOK:   false,
		},
		{
			name:       "unknown guesses a single choice",
			strategy:   NewStrategy(nil, 1, 0),
			question:   service.QuestionView{QuestionID: "8", Choices: []string{"Cuenca"}},
			wantMode:   engine.ModeChoice,
			wantAnswer: "Cuenca",
			wantOK:     true,
		},
		{
			name:       "miss every first known answer",
			strategy:   NewStrategy(catalog, 1, 1),
			question:   service.QuestionView{QuestionID: "7", Choices: []string{"Lima"}},
			wantMode:   engine.ModeChoice,
			wantAnswer: "Lima",
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, answer, ok := tt.strategy.Answer(&tt.question)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if mode != tt.wantMode || answer != tt.wantAnswer {
				t.Errorf("Expected %s %q, got %s %q", tt.wantMode, tt.wantAnswer, mode, answer)
			}
		})
	}
}

func TestStrategy_GuessesAreOfferedChoices(t *testing.T) {
	s := NewStrategy(nil, 42, 0)
	choices := []string{"Quito", "Guayaquil", "Cuenca", "Loja"}
	seen := map[string]bool{}

	for i := 0; i < 50; i++ {
		_, answer, ok := s.Answer(&service.QuestionView{Choices: choices})
		if !ok {
			t.Fatal("Expected a guess")
		}
		found := false
		for _, c := range choices {
			if c == answer {
				found = true
			}
		}
		if !found {
			t.Fatalf("Guess %q is not an offered choice", answer)
		}
		seen[answer] = true
	}
	if len(seen) < 2 {
		t.Errorf("Expected guesses to vary, got %v", seen)
	}
}

func TestStrategy_MissEveryCountsAcrossRun(t *testing.T) {
	catalog := &engine.Catalog{Questions: []engine.Question{{ID: "1", Answer: "Quito"}}}
	s := NewStrategy(catalog, 1, 2)
	q := &service.QuestionView{QuestionID: "1", Choices: []string{"Lima"}}

	modes := []engine.AnswerMode{}
	for i := 0; i < 4; i++ {
		mode, _, _ := s.Answer(q)
		modes = append(modes, mode)
	}
	want := []engine.AnswerMode{engine.ModeText, engine.ModeChoice, engine.ModeText, engine.ModeChoice}
	for i := range want {
		if modes[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, modes)
		}
	}

	s.Reset()
	if mode, _, _ := s.Answer(q); mode != engine.ModeText {
		t.Errorf("Expected Reset to restart the miss counter, got %s", mode)
	}
}
