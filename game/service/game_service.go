package service

import (
	"context"
	"errors"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/session"
)

// ErrDifficultyNotFound is returned for an unknown preset when the service
// runs without a config manager
var ErrDifficultyNotFound = errors.New("difficulty not found")

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, nickname, difficulty string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Navigation
	Start(ctx context.Context, sessionID, nickname string) (*CommandResult, error)
	FinishIntro(ctx context.Context, sessionID string) (*CommandResult, error)
	ShowMap(ctx context.Context, sessionID string) (*CommandResult, error)
	EnterLevel(ctx context.Context, sessionID string, level int) (*CommandResult, error)

	// Questions
	OpenQuestion(ctx context.Context, sessionID, category string, value int) (*QuestionResult, error)
	CloseQuestion(ctx context.Context, sessionID string) (*CommandResult, error)
	SubmitAnswer(ctx context.Context, sessionID string, answer engine.Answer) (*AnswerResult, error)
	GiveUp(ctx context.Context, sessionID string) (*AnswerResult, error)
	RequestAITurn(ctx context.Context, sessionID string, level int) (*AITurnResult, error)

	// Run lifecycle
	Replay(ctx context.Context, sessionID, mode string) (*CommandResult, error)
	Reset(ctx context.Context, sessionID string) (*CommandResult, error)
	UpdateSettings(ctx context.Context, sessionID string, settings engine.Settings) (*CommandResult, error)

	// Game State
	GetState(ctx context.Context, sessionID string) (*engine.SessionState, error)
	GetBoard(ctx context.Context, sessionID string, level int) (*engine.BoardView, error)
	GetSummary(ctx context.Context, sessionID string) (*engine.Summary, error)
	GetPractice(ctx context.Context, sessionID string) (*PracticeInfo, error)
	CheckPractice(ctx context.Context, questionID, choice string) (*PracticeResult, error)

	// Configuration
	ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error)
	GetDifficulty(ctx context.Context, name string) (*engine.Tuning, error)
	CatalogCoverage(ctx context.Context, difficulty string) (*CoverageReport, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, difficulty string) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []*session.Session
	Delete(id string) error
	Catalog() *engine.Catalog
}

// ConfigManager handles difficulty preset loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Tuning, error)
	ListConfigs() ([]*DifficultyInfo, error)
	GetDefault() *engine.Tuning
}
