package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/session"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	now      func() time.Time
	mu       sync.RWMutex
}

// Option configures a game service
type Option func(*gameServiceImpl)

// WithClock sets the clock used for question countdowns. It should match the
// session scheduler's clock.
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		s.now = now
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadConfig resolves a preset. Without a config manager only the built-in
// default preset exists.
func (s *gameServiceImpl) loadConfig(name string) (*engine.Tuning, error) {
	if s.configs == nil {
		if name == "" || name == session.DefaultDifficulty {
			return engine.DefaultTuning(), nil
		}
		return nil, fmt.Errorf("%w: %q", ErrDifficultyNotFound, name)
	}
	return s.configs.LoadConfig(name)
}

// difficultyID resolves a requested difficulty, "" meaning the default
func (s *gameServiceImpl) difficultyID(name string) (string, error) {
	if name == "" {
		if s.configs != nil {
			if def := s.configs.GetDefault(); def != nil {
				return def.Name, nil
			}
		}
		return session.DefaultDifficulty, nil
	}
	if _, err := s.loadConfig(name); err != nil {
		if s.configs == nil {
			return "", fmt.Errorf("difficulty '%s' not found, available: [%s]: %w", name, session.DefaultDifficulty, err)
		}
		available, listErr := s.configs.ListConfigs()
		if listErr == nil && len(available) > 0 {
			var ids []string
			for _, d := range available {
				ids = append(ids, d.ID)
			}
			return "", fmt.Errorf("difficulty '%s' not found, available: %v: %w", name, ids, err)
		}
		return "", fmt.Errorf("difficulty '%s' not found: %w", name, err)
	}
	return name, nil
}

func (s *gameServiceImpl) get(ctx context.Context, sessionID string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("session '%s': %w", sessionID, err)
		}
		return nil, fmt.Errorf("failed to load session '%s': %w", sessionID, err)
	}
	return sess, nil
}

func (s *gameServiceImpl) info(sess *session.Session) *SessionInfo {
	state := sess.State()
	return &SessionInfo{
		ID:             sess.ID,
		Difficulty:     state.Difficulty,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		AIPhase:        sess.AIPhase(),
		State:          state,
		Question:       NewQuestionView(sess.Active(), s.now()),
		Tuning:         sess.Tuning(),
	}
}

// CreateSession creates a new game session, starting the run when a
// nickname is given
func (s *gameServiceImpl) CreateSession(ctx context.Context, nickname, difficulty string) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.difficultyID(difficulty)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create("", id)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if nickname != "" {
		if _, err := sess.Start(nickname); err != nil {
			return nil, err
		}
	}

	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("failed to delete session '%s': %w", sessionID, err)
	}
	return nil
}

func (s *gameServiceImpl) command(ctx context.Context, sessionID string, op func(*session.Session) ([]engine.Event, error)) (*CommandResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events, err := op(sess)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Events: events, State: sess.State()}, nil
}

// Start records the nickname and shows the intro
func (s *gameServiceImpl) Start(ctx context.Context, sessionID, nickname string) (*CommandResult, error) {
	return s.command(ctx, sessionID, func(sess *session.Session) ([]engine.Event, error) {
		return sess.Start(nickname)
	})
}

// FinishIntro moves from the intro to the map
func (s *gameServiceImpl) FinishIntro(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.command(ctx, sessionID, (*session.Session).FinishIntro)
}

// ShowMap returns to the city map
func (s *gameServiceImpl) ShowMap(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.command(ctx, sessionID, (*session.Session).ShowMap)
}

// EnterLevel opens a city's board
func (s *gameServiceImpl) EnterLevel(ctx context.Context, sessionID string, level int) (*CommandResult, error) {
	return s.command(ctx, sessionID, func(sess *session.Session) ([]engine.Event, error) {
		return sess.EnterLevel(level)
	})
}

// OpenQuestion opens a tile on the current board
func (s *gameServiceImpl) OpenQuestion(ctx context.Context, sessionID, category string, value int) (*QuestionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	active, events, err := sess.OpenQuestion(category, value)
	if err != nil {
		return nil, err
	}
	return &QuestionResult{
		Question: NewQuestionView(active, s.now()),
		Events:   events,
		State:    sess.State(),
	}, nil
}

// CloseQuestion abandons the open question
func (s *gameServiceImpl) CloseQuestion(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.command(ctx, sessionID, (*session.Session).CloseQuestion)
}

func (s *gameServiceImpl) resolve(ctx context.Context, sessionID string, op func(*session.Session) (*engine.Resolution, error)) (*AnswerResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	res, err := op(sess)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{Resolution: res, State: sess.State()}, nil
}

// SubmitAnswer answers the open question
func (s *gameServiceImpl) SubmitAnswer(ctx context.Context, sessionID string, answer engine.Answer) (*AnswerResult, error) {
	return s.resolve(ctx, sessionID, func(sess *session.Session) (*engine.Resolution, error) {
		return sess.Submit(answer)
	})
}

// GiveUp passes on the open question
func (s *gameServiceImpl) GiveUp(ctx context.Context, sessionID string) (*AnswerResult, error) {
	return s.resolve(ctx, sessionID, (*session.Session).GiveUp)
}

// RequestAITurn lets the AI claim a tile now
func (s *gameServiceImpl) RequestAITurn(ctx context.Context, sessionID string, level int) (*AITurnResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turn, events, err := sess.RequestAITurn(level)
	if err != nil {
		return nil, err
	}
	result := &AITurnResult{Events: events, State: sess.State()}
	if turn != nil {
		result.Started = true
		result.Level = turn.Level
		result.Category = turn.Tile.Category
		result.Value = turn.Tile.Value
		result.DelayMs = turn.Delay.Milliseconds()
	}
	return result, nil
}

// Replay starts a new run, optionally on another difficulty
func (s *gameServiceImpl) Replay(ctx context.Context, sessionID, mode string) (*CommandResult, error) {
	if mode != "" {
		if _, err := s.difficultyID(mode); err != nil {
			return nil, err
		}
	}
	return s.command(ctx, sessionID, func(sess *session.Session) ([]engine.Event, error) {
		return sess.Replay(mode)
	})
}

// Reset discards all progress
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.command(ctx, sessionID, (*session.Session).Reset)
}

// UpdateSettings replaces the presentation settings
func (s *gameServiceImpl) UpdateSettings(ctx context.Context, sessionID string, settings engine.Settings) (*CommandResult, error) {
	return s.command(ctx, sessionID, func(sess *session.Session) ([]engine.Event, error) {
		return sess.UpdateSettings(settings)
	})
}

// GetState returns the session state
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.State(), nil
}

// GetBoard renders a level's board. Level 0 means the current level.
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string, level int) (*engine.BoardView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if level == 0 {
		level = sess.State().CurrentLevel
	}
	view, err := sess.View(level)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetSummary builds the end-of-run report
func (s *gameServiceImpl) GetSummary(ctx context.Context, sessionID string) (*engine.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := sess.Summary()
	return &summary, nil
}

// GetPractice returns the warm-up question
func (s *gameServiceImpl) GetPractice(ctx context.Context, sessionID string) (*PracticeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pq, err := sess.Practice()
	if err != nil {
		return nil, err
	}
	return &PracticeInfo{
		QuestionID: string(pq.Question.ID),
		Prompt:     pq.Question.Question,
		Choices:    pq.Choices,
	}, nil
}

// CheckPractice grades a warm-up choice
func (s *gameServiceImpl) CheckPractice(ctx context.Context, questionID, choice string) (*PracticeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, ok := s.sessions.Catalog().QuestionByID(engine.QuestionID(questionID))
	if !ok {
		return nil, fmt.Errorf("%w: practice question %s", engine.ErrNoQuestionForTile, questionID)
	}
	if choice == "" {
		return nil, engine.ErrEmptyAnswer
	}
	return &PracticeResult{
		Correct: engine.CheckPractice(engine.PracticeQuestion{Question: q}, choice),
		Answer:  q.Answer,
	}, nil
}

// ListDifficulties returns the available presets
func (s *gameServiceImpl) ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.configs == nil {
		return []*DifficultyInfo{NewDifficultyInfo(engine.DefaultTuning())}, nil
	}
	return s.configs.ListConfigs()
}

// GetDifficulty returns one preset
func (s *gameServiceImpl) GetDifficulty(ctx context.Context, name string) (*engine.Tuning, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := s.loadConfig(name)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// CatalogCoverage reports how every board tile resolves for a preset
func (s *gameServiceImpl) CatalogCoverage(ctx context.Context, difficulty string) (*CoverageReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.difficultyID(difficulty)
	if err != nil {
		return nil, err
	}
	tuning, err := s.loadConfig(id)
	if err != nil {
		return nil, err
	}
	return BuildCoverage(s.sessions.Catalog(), tuning), nil
}

// BuildCoverage checks catalog against a preset's board layout
func BuildCoverage(catalog *engine.Catalog, tuning *engine.Tuning) *CoverageReport {
	values := tuning.SortedTileValues()
	report := &CoverageReport{
		Difficulty: tuning.Name,
		Questions:  len(catalog.Questions),
		Categories: append([]string(nil), catalog.Categories...),
		Problems:   catalog.Problems(values),
	}
	for level := engine.MinLevel; level <= engine.MaxLevel; level++ {
		lc := LevelCoverage{
			Level: level,
			City:  catalog.LevelName(level),
			Tiles: catalog.Coverage(level, values),
		}
		lc.Total = len(lc.Tiles)
		for _, tc := range lc.Tiles {
			if tc.Source != engine.SourceMissing {
				lc.Playable++
			}
		}
		if lc.Playable == 0 {
			report.Problems = append(report.Problems, fmt.Sprintf("level %d has no playable tiles", level))
		}
		report.Levels = append(report.Levels, lc)
	}
	return report
}
