package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*GameEngine, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	e, err := NewEngine(NewState("engine-test", 1, clock.now), testCatalog(t), DefaultTuning())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	e.SetClock(clock.Now)
	return e, clock
}

func startedEngine(t *testing.T) (*GameEngine, *testClock) {
	t.Helper()
	e, clock := newTestEngine(t)
	if _, err := e.Start("Ana"); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if _, err := e.FinishIntro(); err != nil {
		t.Fatalf("Failed to finish intro: %v", err)
	}
	if _, err := e.EnterLevel(1); err != nil {
		t.Fatalf("Failed to enter level 1: %v", err)
	}
	return e, clock
}

func answerCorrectly(t *testing.T, e *GameEngine, tile Tile) *Resolution {
	t.Helper()
	active, _, err := e.OpenQuestion(tile.Category, tile.Value)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", tile.Key(), err)
	}
	res, err := e.Submit(Answer{Mode: ModeText, Text: active.Question.Answer})
	if err != nil {
		t.Fatalf("Failed to submit %s: %v", tile.Key(), err)
	}
	return res
}

func hasEvent(events []Event, typ EventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func TestNewEngine_InvalidTuning(t *testing.T) {
	bad := DefaultTuning()
	bad.TimerSeconds = 0
	if _, err := NewEngine(nil, nil, bad); err == nil {
		t.Error("Expected error for invalid tuning")
	}
	e, err := NewEngine(nil, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create engine with defaults: %v", err)
	}
	if len(e.AvailableTiles(1)) != 0 {
		t.Error("Expected no playable tiles without a catalog")
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	e, clock := startedEngine(t)

	active, events, err := e.OpenQuestion("History", 200)
	if err != nil {
		t.Fatalf("Failed to open question: %v", err)
	}
	if e.State().Screen != ScreenQuestion || !hasEvent(events, EventQuestionOpened) {
		t.Errorf("Expected question screen, got %s", e.State().Screen)
	}
	if len(active.Choices) != 4 {
		t.Errorf("Expected 4 choices, got %v", active.Choices)
	}
	if !active.Deadline.Equal(clock.now.Add(24 * time.Second)) {
		t.Errorf("Expected 24s deadline, got %v", active.Deadline)
	}

	clock.Advance(2500 * time.Millisecond)
	res, err := e.Submit(Answer{Mode: ModeText, Text: "Quito"})
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if !res.Correct || res.Delta != 200 || res.Message != "Correct! You gain $200" {
		t.Errorf("Unexpected resolution %+v", res)
	}

	if e.Scores().Player != 200 {
		t.Errorf("Expected player score 200, got %d", e.Scores().Player)
	}
	stats := e.Stats()
	if stats.Correct != 1 || stats.Streak != 1 {
		t.Errorf("Expected 1 correct and streak 1, got %+v", stats)
	}
	if stats.FastestMs == nil || *stats.FastestMs != 2500 {
		t.Errorf("Expected fastest 2500ms, got %v", stats.FastestMs)
	}
	ls, _ := e.Level(1)
	rec := ls.Tiles["History|200"]
	if !rec.Correct || rec.PlayedBy != PartyPlayer || rec.QuestionID != "1" {
		t.Errorf("Unexpected tile record %+v", rec)
	}
	if e.State().Screen != ScreenBoard || e.Active() != nil {
		t.Error("Expected to be back on the board with no open question")
	}

	events, err = e.Replay(nil)
	if err != nil {
		t.Fatalf("Failed to replay: %v", err)
	}
	if !hasEvent(events, EventReplay) {
		t.Error("Expected replay event")
	}
	if e.Scores() != (Scoreboard{}) {
		t.Errorf("Expected zero scores after replay, got %+v", e.Scores())
	}
	for l, want := range []bool{true, false, false} {
		ls, _ := e.Level(l + 1)
		if ls.Unlocked != want || ls.Completed || len(ls.Tiles) != 0 {
			t.Errorf("Level %d after replay: %+v", l+1, ls)
		}
	}
	if e.State().Screen != ScreenMap || e.State().CurrentLevel != 1 || e.Stats().Correct != 0 {
		t.Error("Expected fresh map at level 1 after replay")
	}
}

func TestEngine_StartValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Start("   "); !errors.Is(err, ErrEmptyNickname) {
		t.Errorf("Expected ErrEmptyNickname, got %v", err)
	}
	if _, err := e.FinishIntro(); !errors.Is(err, ErrEmptyNickname) {
		t.Errorf("Expected ErrEmptyNickname before start, got %v", err)
	}
	if _, err := e.Start("  Ana "); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	s := e.State()
	if s.Nickname != "Ana" || s.Seed != 65972 || s.RNGState == nil || *s.RNGState != 65972 || s.Screen != ScreenIntro {
		t.Errorf("Unexpected state after start %+v", s)
	}
}

func TestEngine_LevelNavigation(t *testing.T) {
	e, _ := startedEngine(t)

	if _, err := e.EnterLevel(2); !errors.Is(err, ErrLevelLocked) {
		t.Errorf("Expected ErrLevelLocked, got %v", err)
	}
	if _, err := e.EnterLevel(0); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel, got %v", err)
	}
	if _, err := e.ShowMap(); err != nil {
		t.Fatalf("Failed to show map: %v", err)
	}
	if _, _, err := e.OpenQuestion("History", 200); !errors.Is(err, ErrNotOnBoard) {
		t.Errorf("Expected ErrNotOnBoard from the map, got %v", err)
	}
}

func TestEngine_QuestionErrors(t *testing.T) {
	e, _ := startedEngine(t)

	if _, err := e.Submit(Answer{Text: "Quito"}); !errors.Is(err, ErrNoActiveQuestion) {
		t.Errorf("Expected ErrNoActiveQuestion, got %v", err)
	}
	if _, _, err := e.OpenQuestion("History", 999); !errors.Is(err, ErrNoQuestionForTile) {
		t.Errorf("Expected ErrNoQuestionForTile, got %v", err)
	}

	active, _, err := e.OpenQuestion("History", 200)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	if _, _, err := e.OpenQuestion("History", 400); !errors.Is(err, ErrQuestionOpen) {
		t.Errorf("Expected ErrQuestionOpen, got %v", err)
	}
	if _, err := e.EnterLevel(1); !errors.Is(err, ErrQuestionOpen) {
		t.Errorf("Expected ErrQuestionOpen on navigation, got %v", err)
	}
	if _, err := e.Submit(Answer{Mode: ModeText, Text: "   "}); !errors.Is(err, ErrEmptyAnswer) {
		t.Errorf("Expected ErrEmptyAnswer, got %v", err)
	}
	if _, err := e.Submit(Answer{Mode: ModeChoice, Text: "Not offered"}); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("Expected ErrInvalidChoice, got %v", err)
	}
	if e.Active() == nil {
		t.Fatal("Expected question to stay open after rejected submissions")
	}

	res, err := e.Submit(Answer{Mode: ModeChoice, Text: active.Choices[indexOf(active.Choices, "Quito")]})
	if err != nil || !res.Correct {
		t.Fatalf("Expected choice submission to be correct, got %+v, %v", res, err)
	}
	if _, _, err := e.OpenQuestion("History", 200); !errors.Is(err, ErrDuplicateTile) {
		t.Errorf("Expected ErrDuplicateTile, got %v", err)
	}
}

func indexOf(items []string, want string) int {
	for i, s := range items {
		if s == want {
			return i
		}
	}
	return -1
}

func TestEngine_IncorrectOutcomes(t *testing.T) {
	t.Run("timeout carries no elapsed time", func(t *testing.T) {
		e, clock := startedEngine(t)
		e.OpenQuestion("History", 400)
		clock.Advance(24 * time.Second)
		res, err := e.Timeout()
		if err != nil {
			t.Fatalf("Failed to time out: %v", err)
		}
		if res.Correct || res.ElapsedMs != nil || res.Delta != -400 {
			t.Errorf("Unexpected timeout resolution %+v", res)
		}
		if !strings.HasPrefix(res.Message, "Time is up") {
			t.Errorf("Unexpected message %q", res.Message)
		}
		ls, _ := e.Level(1)
		if ls.Tiles["History|400"].ElapsedMs != nil {
			t.Error("Expected no elapsed time on the record")
		}
		if e.Scores().Player != -400 || e.Stats().Incorrect != 1 {
			t.Errorf("Unexpected score/stats %+v %+v", e.Scores(), e.Stats())
		}
	})

	t.Run("give up records elapsed", func(t *testing.T) {
		e, clock := startedEngine(t)
		e.OpenQuestion("History", 600)
		clock.Advance(3 * time.Second)
		res, err := e.GiveUp()
		if err != nil {
			t.Fatalf("Failed to give up: %v", err)
		}
		if res.ElapsedMs == nil || *res.ElapsedMs != 3000 || res.Correct {
			t.Errorf("Unexpected give-up resolution %+v", res)
		}
		if res.Message != "You passed You lose $600" {
			t.Errorf("Unexpected message %q", res.Message)
		}
		if e.Stats().FastestMs != nil {
			t.Error("Expected incorrect answers to leave fastest unset")
		}
	})

	t.Run("wrong text answer", func(t *testing.T) {
		e, _ := startedEngine(t)
		e.OpenQuestion("Geography", 200)
		res, _ := e.Submit(Answer{Text: "Cotopaxi"})
		if res.Correct {
			t.Error("Expected Cotopaxi to be rejected for Chimborazo")
		}
	})
}

func TestEngine_StreakMessage(t *testing.T) {
	e, _ := startedEngine(t)
	answerCorrectly(t, e, Tile{Category: "History", Value: 200})
	res := answerCorrectly(t, e, Tile{Category: "History", Value: 400})
	if !strings.HasPrefix(res.Message, "Streak x2!") {
		t.Errorf("Expected streak message, got %q", res.Message)
	}
	if !hasEvent(res.Events, EventStreak) {
		t.Error("Expected streak event")
	}
}

func TestEngine_CloseQuestionKeepsTilePlayable(t *testing.T) {
	e, _ := startedEngine(t)
	e.OpenQuestion("History", 200)
	if _, err := e.CloseQuestion(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if len(e.AvailableTiles(1)) != 6 {
		t.Error("Expected the closed tile to remain available")
	}
	if _, err := e.CloseQuestion(); !errors.Is(err, ErrNoActiveQuestion) {
		t.Errorf("Expected ErrNoActiveQuestion, got %v", err)
	}
	if _, _, err := e.OpenQuestion("History", 200); err != nil {
		t.Errorf("Expected to reopen the tile, got %v", err)
	}
}

func TestEngine_CompletionFlow(t *testing.T) {
	e, _ := startedEngine(t)

	var last *Resolution
	for _, tile := range e.AvailableTiles(1) {
		last = answerCorrectly(t, e, tile)
	}
	if !last.Completion.Completed || last.Completion.Unlocked != 2 {
		t.Fatalf("Expected level 1 completion, got %+v", last.Completion)
	}
	if !hasEvent(last.Events, EventLevelCompleted) || !hasEvent(last.Events, EventLevelUnlocked) {
		t.Error("Expected completion and unlock events")
	}
	if e.State().Screen != ScreenMap {
		t.Errorf("Expected map after completing a city, got %s", e.State().Screen)
	}
	if e.ShouldTakeAITurn(1) {
		t.Error("Expected no AI turn on a completed level")
	}

	for _, level := range []int{2, 3} {
		if _, err := e.EnterLevel(level); err != nil {
			t.Fatalf("Failed to enter level %d: %v", level, err)
		}
		for _, tile := range e.AvailableTiles(level) {
			last = answerCorrectly(t, e, tile)
		}
	}
	if !last.Completion.Final || e.State().Screen != ScreenEnd || !hasEvent(last.Events, EventGameOver) {
		t.Errorf("Expected game over after level 3, got %+v screen %s", last.Completion, e.State().Screen)
	}
}

func TestEngine_AITurn(t *testing.T) {
	e, _ := startedEngine(t)

	if !e.ShouldTakeAITurn(1) {
		t.Fatal("Expected the AI to be able to play level 1")
	}
	turn, events, err := e.StartAITurn(1)
	if err != nil || turn == nil {
		t.Fatalf("Failed to start AI turn: %v", err)
	}
	if !hasEvent(events, EventAIThinking) || e.AIPhase() != AIThinking {
		t.Error("Expected AI to be thinking")
	}
	if _, _, err := e.StartAITurn(1); !errors.Is(err, ErrAIBusy) {
		t.Errorf("Expected ErrAIBusy, got %v", err)
	}
	if e.ShouldTakeAITurn(1) {
		t.Error("Expected no second AI turn while thinking")
	}

	view, _ := e.View(1)
	claimedSeen := false
	for _, col := range view.Columns {
		for _, tv := range col {
			if tv.Status == TileClaimed {
				claimedSeen = true
			}
		}
	}
	if !claimedSeen {
		t.Error("Expected the board view to show the claimed tile")
	}

	if _, _, err := e.OpenQuestion(turn.Tile.Category, turn.Tile.Value); !errors.Is(err, ErrTileClaimed) {
		t.Errorf("Expected ErrTileClaimed, got %v", err)
	}

	var other Tile
	for _, tile := range e.AvailableTiles(1) {
		if tile.Key() != turn.Tile.Key() {
			other = tile
			break
		}
	}
	if _, _, err := e.OpenQuestion(other.Category, other.Value); err != nil {
		t.Fatalf("Expected to open an unclaimed tile, got %v", err)
	}

	res, err := e.ResolveAITurn()
	if err != nil {
		t.Fatalf("Failed to resolve AI turn: %v", err)
	}
	if res.Party != PartyAI || e.Scores().AI != res.Delta || e.Scores().Player != 0 {
		t.Errorf("Unexpected AI resolution %+v scores %+v", res, e.Scores())
	}
	ls, _ := e.Level(1)
	if rec := ls.Tiles[turn.Tile.Key().String()]; rec.PlayedBy != PartyAI || rec.ElapsedMs != nil {
		t.Errorf("Unexpected AI record %+v", rec)
	}
	if e.Stats().Answered() != 0 {
		t.Error("Expected AI turns to leave player stats alone")
	}
	if _, err := e.ResolveAITurn(); !errors.Is(err, ErrNoAITurn) {
		t.Errorf("Expected ErrNoAITurn, got %v", err)
	}
	if _, _, err := e.StartAITurn(1); !errors.Is(err, ErrQuestionOpen) {
		t.Errorf("Expected ErrQuestionOpen while the player answers, got %v", err)
	}
}

func TestEngine_AITurnUnavailable(t *testing.T) {
	e, _ := startedEngine(t)
	turn, _, err := e.StartAITurn(2)
	if err != nil || turn != nil {
		t.Errorf("Expected no AI turn on a locked level, got %v, %v", turn, err)
	}
	if _, _, err := e.StartAITurn(4); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel, got %v", err)
	}

	e.StartAITurn(1)
	e.CancelAITurn()
	if e.AIPhase() != AIIdle {
		t.Error("Expected cancel to release the turn")
	}
	if _, err := e.ResolveAITurn(); !errors.Is(err, ErrNoAITurn) {
		t.Errorf("Expected ErrNoAITurn after cancel, got %v", err)
	}
}

func TestEngine_AICompletesLevel(t *testing.T) {
	e, _ := startedEngine(t)
	tiles := e.AvailableTiles(1)
	for _, tile := range tiles[:len(tiles)-1] {
		answerCorrectly(t, e, tile)
	}
	if _, _, err := e.StartAITurn(1); err != nil {
		t.Fatalf("Failed to start AI turn: %v", err)
	}
	res, err := e.ResolveAITurn()
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if !res.Completion.Completed || e.State().Screen != ScreenMap {
		t.Errorf("Expected the AI's last tile to complete the city, got %+v on %s", res.Completion, e.State().Screen)
	}
}

func TestEngine_Determinism(t *testing.T) {
	run := func() ([]string, TileKey) {
		e, _ := startedEngine(t)
		active, _, err := e.OpenQuestion("Geography", 400)
		if err != nil {
			t.Fatalf("Failed to open: %v", err)
		}
		e.CloseQuestion()
		turn, _, _ := e.StartAITurn(1)
		return active.Choices, turn.Tile.Key()
	}
	c1, k1 := run()
	c2, k2 := run()
	if !reflect.DeepEqual(c1, c2) || k1 != k2 {
		t.Errorf("Expected identical runs for the same nickname: %v/%v vs %v/%v", c1, k1, c2, k2)
	}
}

func TestEngine_ReplayWithTuning(t *testing.T) {
	e, _ := startedEngine(t)
	hard := DefaultTuning()
	hard.Name = "hard"
	hard.AI.SuccessByLevel = map[int]float64{1: 0.9, 2: 0.75, 3: 0.6}

	if _, err := e.Replay(hard); err != nil {
		t.Fatalf("Failed to replay: %v", err)
	}
	if e.State().Difficulty != "hard" || e.Tuning().AI.SuccessByLevel[1] != 0.9 {
		t.Errorf("Expected hard tuning, got %s %+v", e.State().Difficulty, e.Tuning().AI)
	}

	bad := DefaultTuning()
	bad.Name = ""
	if _, err := e.Replay(bad); err == nil {
		t.Error("Expected invalid tuning to be rejected")
	}
}

func TestEngine_Reset(t *testing.T) {
	e, _ := startedEngine(t)
	answerCorrectly(t, e, Tile{Category: "History", Value: 200})
	e.StartAITurn(1)

	events := e.Reset(777)
	if !hasEvent(events, EventReset) {
		t.Error("Expected reset event")
	}
	s := e.State()
	if s.SessionID != "engine-test" || s.Nickname != "" || s.Seed != 777 || s.Screen != ScreenStart {
		t.Errorf("Unexpected state after reset %+v", s)
	}
	if s.Scores.Player != 0 || len(s.Levels[1].Tiles) != 0 || e.AIPhase() != AIIdle {
		t.Error("Expected progress and AI turn to be cleared")
	}
}

func TestEngine_UpdateSettings(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.UpdateSettings(Settings{Theme: "neon"}); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
	if _, err := e.UpdateSettings(Settings{SFX: false, Music: true, HighContrast: true}); err != nil {
		t.Fatalf("Failed to update settings: %v", err)
	}
	s := e.State().Settings
	if s.SFX || !s.Music || !s.HighContrast || s.Theme != "dark" {
		t.Errorf("Unexpected settings %+v", s)
	}
}

func TestEngine_Summary(t *testing.T) {
	e, clock := startedEngine(t)
	answerCorrectly(t, e, Tile{Category: "History", Value: 200})
	clock.Advance(90 * time.Second)

	s := e.Summary()
	if s.ShareText != "Ecuador Trivia Journey: Ana beats the AI 200 vs 0." {
		t.Errorf("Unexpected share text %q", s.ShareText)
	}
	if s.Accuracy != 100 || s.Winner != PartyPlayer || s.Version != Version {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.ElapsedMinutes != 1.5 {
		t.Errorf("Expected 1.5 minutes, got %v", s.ElapsedMinutes)
	}
	if len(s.Cities) != 3 || s.Cities[0].City != "Quito" || s.Cities[0].Money != 200 {
		t.Errorf("Unexpected city breakdown %+v", s.Cities)
	}

	e.state.Scores.AI = 900
	if s := e.Summary(); s.Winner != PartyAI || !strings.Contains(s.ShareText, "loses to the AI 200 vs 900") {
		t.Errorf("Unexpected losing summary %+v", s)
	}
}

func TestEngine_Practice(t *testing.T) {
	e, _ := newTestEngine(t)
	pq, ok := e.Practice()
	if !ok || pq.Question.Answer != "1822" {
		t.Errorf("Unexpected practice question %+v", pq)
	}
}

func finishedEngine(t *testing.T) *GameEngine {
	t.Helper()
	e, _ := startedEngine(t)
	for level := MinLevel; level <= MaxLevel; level++ {
		if level > MinLevel {
			if _, err := e.EnterLevel(level); err != nil {
				t.Fatalf("Failed to enter level %d: %v", level, err)
			}
		}
		for _, tile := range e.AvailableTiles(level) {
			answerCorrectly(t, e, tile)
		}
	}
	if e.State().Screen != ScreenEnd {
		t.Fatalf("Expected end screen, got %s", e.State().Screen)
	}
	return e
}

func TestEngine_ScreenTransitions(t *testing.T) {
	fresh := func(t *testing.T) *GameEngine {
		e, _ := newTestEngine(t)
		return e
	}
	intro := func(t *testing.T) *GameEngine {
		e, _ := newTestEngine(t)
		if _, err := e.Start("Ana"); err != nil {
			t.Fatalf("Failed to start: %v", err)
		}
		return e
	}
	onMap := func(t *testing.T) *GameEngine {
		e := intro(t)
		if _, err := e.FinishIntro(); err != nil {
			t.Fatalf("Failed to finish intro: %v", err)
		}
		return e
	}
	questionOpen := func(t *testing.T) *GameEngine {
		e, _ := startedEngine(t)
		if _, _, err := e.OpenQuestion("History", 200); err != nil {
			t.Fatalf("Failed to open question: %v", err)
		}
		return e
	}

	tests := []struct {
		name    string
		setup   func(t *testing.T) *GameEngine
		op      func(e *GameEngine) error
		wantErr error
	}{
		{
			name:    "enter level before start",
			setup:   fresh,
			op:      func(e *GameEngine) error { _, err := e.EnterLevel(1); return err },
			wantErr: ErrEmptyNickname,
		},
		{
			name:    "show map before start",
			setup:   fresh,
			op:      func(e *GameEngine) error { _, err := e.ShowMap(); return err },
			wantErr: ErrEmptyNickname,
		},
		{
			name:    "enter level from intro",
			setup:   intro,
			op:      func(e *GameEngine) error { _, err := e.EnterLevel(1); return err },
			wantErr: ErrWrongScreen,
		},
		{
			name:    "finish intro twice",
			setup:   onMap,
			op:      func(e *GameEngine) error { _, err := e.FinishIntro(); return err },
			wantErr: ErrWrongScreen,
		},
		{
			name:    "finish intro with a question open",
			setup:   questionOpen,
			op:      func(e *GameEngine) error { _, err := e.FinishIntro(); return err },
			wantErr: ErrWrongScreen,
		},
		{
			name:    "show map with a question open",
			setup:   questionOpen,
			op:      func(e *GameEngine) error { _, err := e.ShowMap(); return err },
			wantErr: ErrQuestionOpen,
		},
		{
			name:    "start again mid run",
			setup:   onMap,
			op:      func(e *GameEngine) error { _, err := e.Start("Bea"); return err },
			wantErr: ErrWrongScreen,
		},
		{
			name:    "enter level after the game ended",
			setup:   finishedEngine,
			op:      func(e *GameEngine) error { _, err := e.EnterLevel(1); return err },
			wantErr: ErrWrongScreen,
		},
		{
			name:    "show map after the game ended",
			setup:   finishedEngine,
			op:      func(e *GameEngine) error { _, err := e.ShowMap(); return err },
			wantErr: ErrWrongScreen,
		},
		{
			name:  "retype nickname on intro",
			setup: intro,
			op:    func(e *GameEngine) error { _, err := e.Start("Bea"); return err },
		},
		{
			name:  "enter level from the map",
			setup: onMap,
			op:    func(e *GameEngine) error { _, err := e.EnterLevel(1); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.setup(t)
			before := e.State().Screen
			active := e.Active()

			err := tt.op(e)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if e.State().Screen != before {
				t.Errorf("Expected screen to stay %s, got %s", before, e.State().Screen)
			}
			if e.Active() != active {
				t.Error("Expected the open question to be untouched")
			}
		})
	}
}

func TestEngine_ReplayLeavesEndScreen(t *testing.T) {
	e := finishedEngine(t)
	if _, err := e.Replay(nil); err != nil {
		t.Fatalf("Failed to replay: %v", err)
	}
	if _, err := e.EnterLevel(1); err != nil {
		t.Errorf("Expected to enter level 1 after replay, got %v", err)
	}
}

func TestEngine_RNGStateZeroSurvivesRestore(t *testing.T) {
	// one draw wraps the Mulberry32 counter to exactly zero
	seed := uint32(0x92D4860B)
	ref := NewPRNG(seed)
	ref.Next()
	want := ref.Next()

	e, err := NewEngine(NewState("wrap", seed, time.Now()), testCatalog(t), DefaultTuning())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	e.rng.Next()
	e.touch()
	if e.State().RNGState == nil || *e.State().RNGState != 0 {
		t.Fatalf("Expected counter 0 after one draw, got %v", e.State().RNGState)
	}

	restored, err := NewEngine(e.State().Clone(), testCatalog(t), DefaultTuning())
	if err != nil {
		t.Fatalf("Failed to restore engine: %v", err)
	}
	if got := restored.rng.Next(); got != want {
		t.Errorf("Expected the sequence to continue with %v, got %v", want, got)
	}
}
