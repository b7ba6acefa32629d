package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/trivia-journey/game/engine"
)

// TuningSource resolves difficulty presets by name
type TuningSource interface {
	Tuning(name string) (*engine.Tuning, error)
}

// Notifier receives the events produced by every session mutation,
// including the ones fired by timers
type Notifier interface {
	Notify(sessionID string, events []engine.Event, state *engine.SessionState)
}

// Options carries a session's collaborators. Zero values are replaced with
// working defaults: no persistence, no notifier, the real scheduler, the
// default logger and the wall clock.
type Options struct {
	Persistence SessionPersistence
	Notifier    Notifier
	Scheduler   Scheduler
	Tunings     TuningSource
	Logger      *slog.Logger
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type timerSlot struct {
	name  string
	timer Timer
	token uint64
}

// Session is a single game run. Every command and every timer callback runs
// under one mutex, so state transitions are sequential. After each mutation
// the session persists a snapshot and forwards the produced events.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	engine       *engine.GameEngine
	lastAccessed time.Time
	closed       bool

	opts   Options
	logger *slog.Logger

	seq       uint64
	countdown timerSlot
	settle    timerSlot
	think     timerSlot
	// level whose settled AI turn is waiting on an earlier AI turn, 0 for none
	owed int
}

// NewSession wraps state in a live session. A nil state starts a fresh run.
func NewSession(id string, state *engine.SessionState, catalog *engine.Catalog, tuning *engine.Tuning, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	now := opts.Now()
	if state == nil {
		state = engine.NewState(id, engine.SeedFromTime(now), now)
	}
	state.SessionID = id

	eng, err := engine.NewEngine(state, catalog, tuning)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	eng.SetClock(opts.Now)

	return &Session{
		ID:           id,
		CreatedAt:    now,
		engine:       eng,
		lastAccessed: now,
		opts:         opts,
		logger:       opts.Logger.With("session_id", id),
		countdown:    timerSlot{name: "countdown"},
		settle:       timerSlot{name: "settle"},
		think:        timerSlot{name: "ai_think"},
	}, nil
}

// arm schedules fn on slot, replacing whatever the slot held. The callback
// runs under the session mutex and is dropped if the slot was re-armed or
// disarmed meanwhile, or if the session was closed.
func (s *Session) arm(slot *timerSlot, d time.Duration, fn func()) {
	s.disarm(slot)
	s.seq++
	token := s.seq
	slot.token = token
	slot.timer = s.opts.Scheduler.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || slot.token != token {
			return
		}
		slot.token = 0
		slot.timer = nil
		fn()
	})
}

func (s *Session) disarm(slot *timerSlot) {
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.timer = nil
	slot.token = 0
}

func (s *Session) disarmAll() {
	s.disarm(&s.countdown)
	s.disarm(&s.settle)
	s.disarm(&s.think)
	s.owed = 0
}

// Pending reports which timers are armed, by name
func (s *Session) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, slot := range []*timerSlot{&s.countdown, &s.settle, &s.think} {
		if slot.token != 0 {
			names = append(names, slot.name)
		}
	}
	return names
}

// snapshotLocked builds the persisted form of the session
func (s *Session) snapshotLocked() *Snapshot {
	return &Snapshot{
		SchemaVersion:  SchemaVersion,
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.lastAccessed,
		State:          s.engine.State().Clone(),
	}
}

// commit persists and publishes after a mutation
func (s *Session) commit(events []engine.Event) {
	s.lastAccessed = s.opts.Now()
	if s.opts.Persistence != nil {
		if err := s.opts.Persistence.Save(s.snapshotLocked()); err != nil {
			s.logger.Warn("failed to persist session", "error", err)
		}
	}
	if s.opts.Notifier != nil && len(events) > 0 {
		s.opts.Notifier.Notify(s.ID, events, s.engine.State().Clone())
	}
	for _, ev := range events {
		s.logger.Debug("game event", "type", ev.Type, "message", ev.Message)
	}
}

func (s *Session) begin() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.lastAccessed = s.opts.Now()
	return nil
}

// afterResolution hands the turn to the AI once the settle delay elapses
func (s *Session) afterResolution(res *engine.Resolution) {
	if res.Completion.Completed {
		return
	}
	s.armSettle(res.Level)
}

func (s *Session) armSettle(level int) {
	s.arm(&s.settle, s.engine.Tuning().Settle(), func() {
		if s.engine.AIPhase() == engine.AIThinking {
			// played once the current AI turn resolves
			s.owed = level
			return
		}
		s.startAITurnLocked(level)
	})
}

func (s *Session) startAITurnLocked(level int) (*engine.AITurn, []engine.Event, error) {
	if !s.engine.ShouldTakeAITurn(level) {
		return nil, nil, nil
	}
	turn, events, err := s.engine.StartAITurn(level)
	if err != nil || turn == nil {
		return nil, nil, err
	}
	s.commit(events)
	s.arm(&s.think, turn.Delay, s.resolveAITurnLocked)
	return turn, events, nil
}

func (s *Session) resolveAITurnLocked() {
	res, err := s.engine.ResolveAITurn()
	if err != nil {
		s.logger.Warn("failed to resolve AI turn", "error", err)
		return
	}
	s.logger.Info("AI turn resolved", "level", res.Level, "category", res.Category, "value", res.Value, "correct", res.Correct)
	s.commit(res.Events)
	if level := s.owed; level != 0 {
		s.owed = 0
		s.armSettle(level)
	}
}

func (s *Session) onCountdown() {
	res, err := s.engine.Timeout()
	if errors.Is(err, engine.ErrNoActiveQuestion) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to time out question", "error", err)
		return
	}
	s.commit(res.Events)
	s.afterResolution(res)
}

// Start records the nickname and shows the intro
func (s *Session) Start(nickname string) ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	events, err := s.engine.Start(nickname)
	if err != nil {
		return nil, err
	}
	s.disarm(&s.settle)
	s.disarm(&s.think)
	s.owed = 0
	s.commit(events)
	return events, nil
}

// FinishIntro moves from the intro to the map
func (s *Session) FinishIntro() ([]engine.Event, error) {
	return s.simple(s.engine.FinishIntro)
}

// ShowMap returns to the city map
func (s *Session) ShowMap() ([]engine.Event, error) {
	return s.simple(s.engine.ShowMap)
}

// EnterLevel opens a city's board
func (s *Session) EnterLevel(level int) ([]engine.Event, error) {
	return s.simple(func() ([]engine.Event, error) {
		return s.engine.EnterLevel(level)
	})
}

func (s *Session) simple(op func() ([]engine.Event, error)) ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	events, err := op()
	if err != nil {
		return nil, err
	}
	s.commit(events)
	return events, nil
}

// OpenQuestion opens a tile and starts its countdown
func (s *Session) OpenQuestion(category string, value int) (*engine.ActiveQuestion, []engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, nil, err
	}
	active, events, err := s.engine.OpenQuestion(category, value)
	if err != nil {
		return nil, nil, err
	}
	s.arm(&s.countdown, s.engine.Tuning().Timer(), s.onCountdown)
	s.commit(events)
	return active, events, nil
}

// CloseQuestion abandons the open question and cancels its countdown
func (s *Session) CloseQuestion() ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	events, err := s.engine.CloseQuestion()
	if err != nil {
		return nil, err
	}
	s.disarm(&s.countdown)
	s.commit(events)
	return events, nil
}

// Submit answers the open question
func (s *Session) Submit(ans engine.Answer) (*engine.Resolution, error) {
	return s.resolve(func() (*engine.Resolution, error) {
		return s.engine.Submit(ans)
	})
}

// GiveUp passes on the open question
func (s *Session) GiveUp() (*engine.Resolution, error) {
	return s.resolve(s.engine.GiveUp)
}

func (s *Session) resolve(op func() (*engine.Resolution, error)) (*engine.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	res, err := op()
	if err != nil {
		return nil, err
	}
	s.disarm(&s.countdown)
	s.commit(res.Events)
	s.afterResolution(res)
	return res, nil
}

// RequestAITurn starts an AI turn on level right away. Level 0 means the
// current level. A nil turn means the AI had nothing to play.
func (s *Session) RequestAITurn(level int) (*engine.AITurn, []engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, nil, err
	}
	if level == 0 {
		level = s.engine.State().CurrentLevel
	}
	if level < engine.MinLevel || level > engine.MaxLevel {
		return nil, nil, fmt.Errorf("%w: %d", engine.ErrInvalidLevel, level)
	}
	if s.engine.AIPhase() == engine.AIThinking {
		return nil, nil, engine.ErrAIBusy
	}
	if s.engine.Active() != nil {
		return nil, nil, engine.ErrQuestionOpen
	}
	s.disarm(&s.settle)
	s.owed = 0
	return s.startAITurnLocked(level)
}

// Replay starts a new run on the map. An empty mode keeps the difficulty.
func (s *Session) Replay(mode string) ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	var tuning *engine.Tuning
	if mode != "" {
		if s.opts.Tunings == nil {
			return nil, fmt.Errorf("no difficulty presets available for %q", mode)
		}
		t, err := s.opts.Tunings.Tuning(mode)
		if err != nil {
			return nil, err
		}
		tuning = t
	}
	events, err := s.engine.Replay(tuning)
	if err != nil {
		return nil, err
	}
	s.disarmAll()
	s.commit(events)
	return events, nil
}

// Reset discards all progress and reseeds from the clock
func (s *Session) Reset() ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return nil, err
	}
	s.disarmAll()
	events := s.engine.Reset(engine.SeedFromTime(s.opts.Now()))
	s.commit(events)
	return events, nil
}

// UpdateSettings replaces the presentation settings
func (s *Session) UpdateSettings(settings engine.Settings) ([]engine.Event, error) {
	return s.simple(func() ([]engine.Event, error) {
		return s.engine.UpdateSettings(settings)
	})
}

// Practice returns the warm-up question
func (s *Session) Practice() (engine.PracticeQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return engine.PracticeQuestion{}, err
	}
	pq, ok := s.engine.Practice()
	if !ok {
		return engine.PracticeQuestion{}, fmt.Errorf("%w: no practice question", engine.ErrNoQuestionForTile)
	}
	s.commit(nil)
	return pq, nil
}

// State returns a copy of the session state
func (s *Session) State() *engine.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State().Clone()
}

// Snapshot returns the persisted form of the session
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// View renders a level's board
func (s *Session) View(level int) (engine.BoardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.View(level)
}

// AvailableTiles lists a level's playable tiles
func (s *Session) AvailableTiles(level int) []engine.Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AvailableTiles(level)
}

// Active returns a copy of the open question, or nil
func (s *Session) Active() *engine.ActiveQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.engine.Active()
	if a == nil {
		return nil
	}
	c := *a
	c.Choices = append([]string(nil), a.Choices...)
	return &c
}

// AIPhase returns the opponent's turn state
func (s *Session) AIPhase() engine.AIPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AIPhase()
}

// Summary builds the end-of-run report
func (s *Session) Summary() engine.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Summary()
}

// Tuning returns a copy of the active difficulty preset
func (s *Session) Tuning() *engine.Tuning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Tuning().Clone()
}

// LastAccessedAt returns when the session was last used
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Close cancels every pending timer and the AI's turn. Later commands fail
// with ErrSessionClosed and timers that still fire are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.disarmAll()
	s.engine.CancelAITurn()
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
