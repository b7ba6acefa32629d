package engine

import "errors"

var (
	ErrCatalogUnavailable = errors.New("question catalog unavailable")
	ErrNoQuestionForTile  = errors.New("no question for tile")
	ErrDuplicateTile      = errors.New("tile already played")
	ErrTileClaimed        = errors.New("tile claimed by the AI")
	ErrLevelLocked        = errors.New("level locked, clear the previous city first")
	ErrInvalidLevel       = errors.New("invalid level")
	ErrEmptyAnswer        = errors.New("type or select an answer")
	ErrInvalidChoice      = errors.New("answer is not one of the offered choices")
	ErrEmptyNickname      = errors.New("enter a nickname to start")
	ErrQuestionOpen       = errors.New("a question is already open")
	ErrNoActiveQuestion   = errors.New("no question is open")
	ErrNotOnBoard         = errors.New("enter a level before picking a tile")
	ErrAIBusy             = errors.New("AI is already thinking")
	ErrNoAITurn           = errors.New("AI has no pending turn")
	ErrInvalidSettings    = errors.New("invalid settings")
	ErrWrongScreen        = errors.New("not available from this screen")
)
