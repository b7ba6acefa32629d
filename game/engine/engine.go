package engine

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Version is reported in run summaries
const Version = "1.0.0"

// Resolution is the outcome of a resolved tile, by the player or the AI
type Resolution struct {
	Party      Party      `json:"party"`
	Level      int        `json:"level"`
	Category   string     `json:"category"`
	Value      int        `json:"value"`
	Answer     string     `json:"answer"`
	Correct    bool       `json:"correct"`
	Delta      int        `json:"delta"`
	ElapsedMs  *int64     `json:"elapsed_ms,omitempty"`
	Message    string     `json:"message"`
	Completion Completion `json:"completion"`
	Events     []Event    `json:"events"`
}

// GameEngine owns one session's state, PRNG and AI opponent. It does no
// scheduling: timers live in the session layer and call back into it.
// A GameEngine is not safe for concurrent use.
type GameEngine struct {
	state   *SessionState
	catalog *Catalog
	tuning  *Tuning
	rng     *PRNG
	ai      *AIOpponent
	matcher Matcher
	board   *Board
	active  *ActiveQuestion
	now     func() time.Time
}

// NewEngine creates an engine over state. The state is normalized in place.
func NewEngine(state *SessionState, catalog *Catalog, tuning *Tuning) (*GameEngine, error) {
	if tuning == nil {
		tuning = DefaultTuning()
	}
	if err := ValidateTuning(tuning); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = EmptyCatalog()
	}
	e := &GameEngine{catalog: catalog, now: time.Now}
	if state == nil {
		state = NewState("", SeedFromTime(e.now()), e.now())
	}
	e.state = NormalizeState(state, e.now())
	e.rng = RestorePRNG(e.state.Seed, *e.state.RNGState)
	e.applyTuning(tuning)
	return e, nil
}

// SetClock replaces the wall clock
func (e *GameEngine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *GameEngine) applyTuning(t *Tuning) {
	e.tuning = t.Clone()
	e.state.Difficulty = t.Name
	e.matcher = NewMatcher(t.AcceptThreshold)
	if e.ai == nil {
		e.ai = NewAIOpponent(e.tuning.AI)
	} else {
		e.ai.Retune(e.tuning.AI)
	}
	e.board = NewBoard(e.state, e.catalog, e.tuning.TileValues)
}

// touch stamps the state after a mutation and syncs the PRNG position
func (e *GameEngine) touch() {
	pos := e.rng.State()
	e.state.RNGState = &pos
	e.state.UpdatedAt = e.now()
}

func (e *GameEngine) event(t EventType, msg string) Event {
	return Event{Type: t, Message: msg, Timestamp: e.now()}
}

func (e *GameEngine) setScreen(s Screen) Event {
	e.state.Screen = s
	ev := e.event(EventScreenChanged, string(s))
	ev.Screen = s
	return ev
}

// State returns the live session state. Callers must not mutate it.
func (e *GameEngine) State() *SessionState { return e.state }

// Catalog returns the question bank in use
func (e *GameEngine) Catalog() *Catalog { return e.catalog }

// Tuning returns the active difficulty preset
func (e *GameEngine) Tuning() *Tuning { return e.tuning }

// Scores returns the scoreboard
func (e *GameEngine) Scores() Scoreboard { return e.state.Scores }

// Stats returns the run statistics
func (e *GameEngine) Stats() RunStats { return e.state.Stats }

// Active returns the open question, or nil
func (e *GameEngine) Active() *ActiveQuestion { return e.active }

// AIPhase returns the opponent's turn state
func (e *GameEngine) AIPhase() AIPhase { return e.ai.Phase() }

// Level returns a copy of a level's state
func (e *GameEngine) Level(level int) (LevelState, error) {
	if level < MinLevel || level > MaxLevel {
		return LevelState{}, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	ls := e.state.Levels[level]
	c := LevelState{Unlocked: ls.Unlocked, Completed: ls.Completed, Tiles: make(map[string]TileRecord, len(ls.Tiles))}
	for k, v := range ls.Tiles {
		c.Tiles[k] = v
	}
	return c, nil
}

// AvailableTiles lists the playable tiles of a level
func (e *GameEngine) AvailableTiles(level int) []Tile {
	return e.board.AvailableTiles(level)
}

// View renders a level's board, marking the tile the AI is thinking about
func (e *GameEngine) View(level int) (BoardView, error) {
	var claimed *TileKey
	if l, key, ok := e.ai.Claimed(); ok && l == level {
		claimed = &key
	}
	return e.board.View(level, claimed)
}

// Start records the nickname, reseeds the PRNG from it and opens the intro
func (e *GameEngine) Start(nickname string) ([]Event, error) {
	name := strings.TrimSpace(nickname)
	if name == "" {
		return nil, ErrEmptyNickname
	}
	if e.active != nil {
		return nil, ErrQuestionOpen
	}
	if e.state.Screen != ScreenStart && e.state.Screen != ScreenIntro {
		return nil, fmt.Errorf("%w: start from %s", ErrWrongScreen, e.state.Screen)
	}
	e.state.Nickname = name
	e.state.Seed = SeedFromString(name)
	e.rng = NewPRNG(e.state.Seed)
	e.ai.Cancel()
	ev := e.setScreen(ScreenIntro)
	e.touch()
	return []Event{ev}, nil
}

// FinishIntro moves from the intro to the map
func (e *GameEngine) FinishIntro() ([]Event, error) {
	if e.state.Nickname == "" {
		return nil, ErrEmptyNickname
	}
	if e.state.Screen != ScreenIntro {
		return nil, fmt.Errorf("%w: finish intro from %s", ErrWrongScreen, e.state.Screen)
	}
	ev := e.setScreen(ScreenMap)
	e.touch()
	return []Event{ev}, nil
}

// canNavigate checks that the run is on the map or a board with no question
// open. The end screen only leaves through replay or reset.
func (e *GameEngine) canNavigate(op string) error {
	if e.active != nil {
		return ErrQuestionOpen
	}
	if e.state.Nickname == "" {
		return ErrEmptyNickname
	}
	if e.state.Screen != ScreenMap && e.state.Screen != ScreenBoard {
		return fmt.Errorf("%w: %s from %s", ErrWrongScreen, op, e.state.Screen)
	}
	return nil
}

// ShowMap returns to the city map
func (e *GameEngine) ShowMap() ([]Event, error) {
	if err := e.canNavigate("show map"); err != nil {
		return nil, err
	}
	ev := e.setScreen(ScreenMap)
	e.touch()
	return []Event{ev}, nil
}

// EnterLevel opens a city's board. Locked cities fail with ErrLevelLocked.
func (e *GameEngine) EnterLevel(level int) ([]Event, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if err := e.canNavigate("enter level"); err != nil {
		return nil, err
	}
	if !e.state.Levels[level].Unlocked {
		return nil, fmt.Errorf("%w: level %d", ErrLevelLocked, level)
	}
	e.state.CurrentLevel = level
	ev := e.setScreen(ScreenBoard)
	ev.Level = level
	e.touch()
	return []Event{ev}, nil
}

// OpenQuestion opens a tile on the current level's board
func (e *GameEngine) OpenQuestion(category string, value int) (*ActiveQuestion, []Event, error) {
	if e.state.Screen != ScreenBoard && e.state.Screen != ScreenQuestion {
		return nil, nil, ErrNotOnBoard
	}
	if e.active != nil {
		return nil, nil, ErrQuestionOpen
	}
	level := e.state.CurrentLevel
	if !e.state.Levels[level].Unlocked {
		return nil, nil, fmt.Errorf("%w: level %d", ErrLevelLocked, level)
	}
	key := TileKey{Category: category, Value: value}
	if _, played := e.board.Lookup(level, key); played {
		return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateTile, key)
	}
	if l, claimed, ok := e.ai.Claimed(); ok && l == level && claimed == key {
		return nil, nil, fmt.Errorf("%w: %s", ErrTileClaimed, key)
	}
	q, ok := e.catalog.Find(level, category, value)
	if !ok {
		return nil, nil, fmt.Errorf("%w: level %d %s", ErrNoQuestionForTile, level, key)
	}

	now := e.now()
	e.active = &ActiveQuestion{
		Level:    level,
		Category: category,
		Value:    value,
		Question: q,
		Choices:  e.catalog.Choices(q, e.tuning.DistractorCount, e.rng),
		OpenedAt: now,
		Deadline: now.Add(e.tuning.Timer()),
	}
	screen := e.setScreen(ScreenQuestion)
	opened := e.event(EventQuestionOpened, fmt.Sprintf("%s - $%d", category, value))
	opened.Level, opened.Category, opened.Value = level, category, value
	e.touch()
	active := *e.active
	return &active, []Event{opened, screen}, nil
}

// Submit checks an answer against the open question and resolves it
func (e *GameEngine) Submit(ans Answer) (*Resolution, error) {
	if e.active == nil {
		return nil, ErrNoActiveQuestion
	}
	text := strings.TrimSpace(ans.Text)
	if text == "" {
		return nil, ErrEmptyAnswer
	}
	switch ans.Mode {
	case ModeText, "":
	case ModeChoice:
		offered := false
		for _, c := range e.active.Choices {
			if c == text {
				offered = true
				break
			}
		}
		if !offered {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChoice, text)
		}
	default:
		return nil, fmt.Errorf("%w: unknown answer mode %q", ErrInvalidChoice, ans.Mode)
	}

	correct := e.matcher.IsAccepted(text, e.active.Question.Answer)
	msg := "Incorrect answer"
	if correct {
		msg = "Correct!"
	}
	return e.resolvePlayer(correct, msg, e.elapsed())
}

// GiveUp resolves the open question as incorrect
func (e *GameEngine) GiveUp() (*Resolution, error) {
	if e.active == nil {
		return nil, ErrNoActiveQuestion
	}
	return e.resolvePlayer(false, "You passed", e.elapsed())
}

// Timeout resolves the open question as incorrect with no elapsed time
func (e *GameEngine) Timeout() (*Resolution, error) {
	if e.active == nil {
		return nil, ErrNoActiveQuestion
	}
	return e.resolvePlayer(false, "Time is up", nil)
}

// CloseQuestion abandons the open question without recording it
func (e *GameEngine) CloseQuestion() ([]Event, error) {
	if e.active == nil {
		return nil, ErrNoActiveQuestion
	}
	a := e.active
	e.active = nil
	closed := e.event(EventQuestionClosed, "Question closed")
	closed.Level, closed.Category, closed.Value = a.Level, a.Category, a.Value
	screen := e.setScreen(ScreenBoard)
	e.touch()
	return []Event{closed, screen}, nil
}

func (e *GameEngine) elapsed() *int64 {
	ms := e.now().Sub(e.active.OpenedAt).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return &ms
}

func (e *GameEngine) resolvePlayer(correct bool, msg string, elapsed *int64) (*Resolution, error) {
	a := e.active
	key := TileKey{Category: a.Category, Value: a.Value}
	rec := TileRecord{PlayedBy: PartyPlayer, Correct: correct, ElapsedMs: elapsed, QuestionID: a.Question.ID}
	if err := e.board.Record(a.Level, key, rec); err != nil {
		return nil, err
	}
	e.active = nil

	delta := e.state.Scores.Apply(PartyPlayer, a.Value, correct)
	e.state.Stats.Record(correct, a.Value, elapsed, a.Level)

	res := &Resolution{
		Party:     PartyPlayer,
		Level:     a.Level,
		Category:  a.Category,
		Value:     a.Value,
		Answer:    a.Question.Answer,
		Correct:   correct,
		Delta:     delta,
		ElapsedMs: elapsed,
	}
	verb := "You lose"
	if correct {
		verb = "You gain"
	}
	res.Message = fmt.Sprintf("%s %s $%d", msg, verb, a.Value)
	if correct && e.state.Stats.Streak >= 2 {
		res.Message = fmt.Sprintf("Streak x%d! %s", e.state.Stats.Streak, res.Message)
	}

	marked := e.event(EventTileMarked, fmt.Sprintf("%s - Answer: %s", msg, a.Question.Answer))
	marked.Level, marked.Category, marked.Value = a.Level, a.Category, a.Value
	marked.Party, marked.Correct = PartyPlayer, correct
	score := e.event(EventScoreChanged, res.Message)
	score.Party, score.Delta, score.Correct = PartyPlayer, delta, correct
	res.Events = append(res.Events, marked, score)
	if correct && e.state.Stats.Streak >= 2 {
		streak := e.event(EventStreak, fmt.Sprintf("Streak x%d!", e.state.Stats.Streak))
		res.Events = append(res.Events, streak)
	}
	res.Events = append(res.Events, e.setScreen(ScreenBoard))

	res.Completion = e.board.CheckCompletion(a.Level)
	res.Events = append(res.Events, e.completionEvents(res.Completion, true)...)
	e.touch()
	return res, nil
}

func (e *GameEngine) completionEvents(c Completion, onBoard bool) []Event {
	if !c.Completed {
		return nil
	}
	var events []Event
	msg := "City completed. Next city unlocked!"
	if c.Final {
		msg = "City completed. Game finished."
	}
	done := e.event(EventLevelCompleted, msg)
	done.Level = c.Level
	events = append(events, done)
	if c.Unlocked != 0 {
		un := e.event(EventLevelUnlocked, fmt.Sprintf("Level %d unlocked", c.Unlocked))
		un.Level = c.Unlocked
		events = append(events, un)
	}
	switch {
	case c.Final:
		over := e.event(EventGameOver, e.shareText())
		events = append(events, over, e.setScreen(ScreenEnd))
	case onBoard:
		events = append(events, e.setScreen(ScreenMap))
	}
	return events
}

// ShouldTakeAITurn reports whether the AI may play level now: the level is
// unlocked and incomplete, tiles remain, no question is open and the AI is
// not already thinking.
func (e *GameEngine) ShouldTakeAITurn(level int) bool {
	if level < MinLevel || level > MaxLevel {
		return false
	}
	ls := e.state.Levels[level]
	if !ls.Unlocked || ls.Completed {
		return false
	}
	if e.active != nil || e.ai.Phase() == AIThinking {
		return false
	}
	return len(e.board.AvailableTiles(level)) > 0
}

// StartAITurn lets the AI claim a tile on level. It returns false when the
// level is locked, finished or has nothing playable.
func (e *GameEngine) StartAITurn(level int) (*AITurn, []Event, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if e.ai.Phase() == AIThinking {
		return nil, nil, ErrAIBusy
	}
	if e.active != nil {
		return nil, nil, ErrQuestionOpen
	}
	ls := e.state.Levels[level]
	if !ls.Unlocked || ls.Completed {
		return nil, nil, nil
	}
	turn, ok := e.ai.TakeTurn(level, e.board.AvailableTiles(level), e.rng)
	if !ok {
		return nil, nil, nil
	}
	ev := e.event(EventAIThinking, fmt.Sprintf("AI thinking on %s - $%d... ~%d%%",
		turn.Tile.Category, turn.Tile.Value, int(math.Round(e.ai.SuccessProbability(level)*100))))
	ev.Level, ev.Category, ev.Value, ev.Party = level, turn.Tile.Category, turn.Tile.Value, PartyAI
	e.touch()
	return &turn, []Event{ev}, nil
}

// ResolveAITurn applies the AI's pending turn
func (e *GameEngine) ResolveAITurn() (*Resolution, error) {
	out, err := e.ai.Resolve(e.rng)
	if err != nil {
		return nil, err
	}
	e.touch()
	key := TileKey{Category: out.Category, Value: out.Value}
	rec := TileRecord{PlayedBy: PartyAI, Correct: out.Correct, QuestionID: out.Question.ID}
	if err := e.board.Record(out.Level, key, rec); err != nil {
		return nil, err
	}
	delta := e.state.Scores.Apply(PartyAI, out.Value, out.Correct)

	verb := "misses"
	if out.Correct {
		verb = "gets"
	}
	res := &Resolution{
		Party:    PartyAI,
		Level:    out.Level,
		Category: out.Category,
		Value:    out.Value,
		Answer:   out.Question.Answer,
		Correct:  out.Correct,
		Delta:    delta,
		Message:  fmt.Sprintf("AI %s %s $%d", verb, out.Category, out.Value),
	}
	resolved := e.event(EventAIResolved, res.Message)
	resolved.Level, resolved.Category, resolved.Value = out.Level, out.Category, out.Value
	resolved.Party, resolved.Correct = PartyAI, out.Correct
	score := e.event(EventScoreChanged, res.Message)
	score.Party, score.Delta, score.Correct = PartyAI, delta, out.Correct
	res.Events = append(res.Events, resolved, score)

	res.Completion = e.board.CheckCompletion(out.Level)
	onBoard := e.state.Screen == ScreenBoard && e.state.CurrentLevel == out.Level
	res.Events = append(res.Events, e.completionEvents(res.Completion, onBoard)...)
	e.touch()
	return res, nil
}

// CancelAITurn drops the AI's pending turn, releasing its claimed tile
func (e *GameEngine) CancelAITurn() {
	e.ai.Cancel()
}

// Replay clears scores, boards and stats and returns to the map at level 1.
// A non-nil tuning replaces the active difficulty.
func (e *GameEngine) Replay(tuning *Tuning) ([]Event, error) {
	if tuning != nil {
		if err := ValidateTuning(tuning); err != nil {
			return nil, err
		}
	}
	e.ai.Cancel()
	e.active = nil
	e.state.ResetProgress(e.now())
	if tuning != nil {
		e.applyTuning(tuning)
	} else {
		e.board = NewBoard(e.state, e.catalog, e.tuning.TileValues)
	}
	replay := e.event(EventReplay, fmt.Sprintf("Replay on %s", e.tuning.Name))
	events := []Event{replay, e.setScreen(ScreenMap)}
	e.touch()
	return events, nil
}

// Reset discards all progress and identity except the session id and
// difficulty, reseeding the PRNG with seed.
func (e *GameEngine) Reset(seed uint32) []Event {
	e.ai.Cancel()
	e.active = nil
	id := e.state.SessionID
	*e.state = *NewState(id, seed, e.now())
	e.rng = NewPRNG(seed)
	e.applyTuning(e.tuning)
	events := []Event{e.event(EventReset, "Progress cleared"), e.setScreen(ScreenStart)}
	e.touch()
	return events
}

// UpdateSettings replaces the presentation settings
func (e *GameEngine) UpdateSettings(s Settings) ([]Event, error) {
	if s.Theme == "" {
		s.Theme = e.state.Settings.Theme
	}
	if s.Theme != "dark" && s.Theme != "light" {
		return nil, fmt.Errorf("%w: theme must be dark or light, got %q", ErrInvalidSettings, s.Theme)
	}
	e.state.Settings = s
	e.touch()
	return []Event{e.event(EventSettingsChanged, "Settings saved")}, nil
}

// CitySummary is one city's line in a run summary
type CitySummary struct {
	Level     int    `json:"level"`
	City      string `json:"city"`
	Completed bool   `json:"completed"`
	CityStats
}

// Summary is the end-of-run report
type Summary struct {
	Nickname       string        `json:"nickname"`
	Scores         Scoreboard    `json:"scores"`
	Stats          RunStats      `json:"stats"`
	Completed      map[int]bool  `json:"completed"`
	Accuracy       int           `json:"accuracy"`
	ElapsedMinutes float64       `json:"elapsed_minutes"`
	Cities         []CitySummary `json:"cities"`
	Winner         Party         `json:"winner"`
	ShareText      string        `json:"share_text"`
	Difficulty     string        `json:"difficulty"`
	Version        string        `json:"version"`
	Timestamp      time.Time     `json:"timestamp"`
}

func (e *GameEngine) shareText() string {
	name := e.state.Nickname
	if name == "" {
		name = "Player"
	}
	verb := "loses to"
	if e.state.Scores.Player >= e.state.Scores.AI {
		verb = "beats"
	}
	return fmt.Sprintf("Ecuador Trivia Journey: %s %s the AI %d vs %d.", name, verb, e.state.Scores.Player, e.state.Scores.AI)
}

// Summary builds the end-of-run report
func (e *GameEngine) Summary() Summary {
	now := e.now()
	s := Summary{
		Nickname:   e.state.Nickname,
		Scores:     e.state.Scores,
		Stats:      e.state.Stats,
		Completed:  make(map[int]bool, MaxLevel),
		Accuracy:   e.state.Stats.Accuracy(),
		Winner:     PartyPlayer,
		ShareText:  e.shareText(),
		Difficulty: e.tuning.Name,
		Version:    Version,
		Timestamp:  now,
	}
	if e.state.Scores.AI > e.state.Scores.Player {
		s.Winner = PartyAI
	}
	minutes := now.Sub(e.state.Stats.StartedAt).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	s.ElapsedMinutes = math.Round(minutes*100) / 100
	for l := MinLevel; l <= MaxLevel; l++ {
		s.Completed[l] = e.state.Levels[l].Completed
		cs := CitySummary{Level: l, City: e.catalog.LevelName(l), Completed: e.state.Levels[l].Completed}
		if c := e.state.Stats.PerCity[l]; c != nil {
			cs.CityStats = *c
		}
		if cs.City == "" {
			cs.City = "City"
		}
		s.Cities = append(s.Cities, cs)
	}
	return s
}

// Practice returns the warm-up question
func (e *GameEngine) Practice() (PracticeQuestion, bool) {
	pq, ok := e.catalog.Practice(e.rng)
	if ok {
		e.touch()
	}
	return pq, ok
}

// CheckPractice reports whether choice answers the warm-up question
func CheckPractice(pq PracticeQuestion, choice string) bool {
	return choice == pq.Question.Answer
}
