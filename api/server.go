package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/trivia-journey/game/config"
	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
	"github.com/wricardo/trivia-journey/game/session"
	"github.com/wricardo/trivia-journey/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer creates a new API server. hub may be nil, in which case /ws is
// not served.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.With("component", "api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Navigation
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/start", s.handleStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/intro/finish", s.handleFinishIntro).Methods("POST")
	api.HandleFunc("/sessions/{id}/map", s.handleShowMap).Methods("POST")
	api.HandleFunc("/sessions/{id}/levels/{level:[0-9]+}/enter", s.handleEnterLevel).Methods("POST")
	api.HandleFunc("/sessions/{id}/levels/{level:[0-9]+}/board", s.handleGetBoard).Methods("GET")

	// Questions
	api.HandleFunc("/sessions/{id}/question", s.handleOpenQuestion).Methods("POST")
	api.HandleFunc("/sessions/{id}/question", s.handleCloseQuestion).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/answer", s.handleSubmitAnswer).Methods("POST")
	api.HandleFunc("/sessions/{id}/give-up", s.handleGiveUp).Methods("POST")
	api.HandleFunc("/sessions/{id}/ai-turn", s.handleAITurn).Methods("POST")

	// Run lifecycle
	api.HandleFunc("/sessions/{id}/replay", s.handleReplay).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/settings", s.handleUpdateSettings).Methods("PUT")
	api.HandleFunc("/sessions/{id}/summary", s.handleGetSummary).Methods("GET")
	api.HandleFunc("/sessions/{id}/practice", s.handleGetPractice).Methods("GET")
	api.HandleFunc("/practice/check", s.handleCheckPractice).Methods("POST")

	// Configuration
	api.HandleFunc("/difficulties", s.handleListDifficulties).Methods("GET")
	api.HandleFunc("/difficulties/{name}", s.handleGetDifficulty).Methods("GET")
	api.HandleFunc("/catalog/coverage", s.handleCoverage).Methods("GET")

	// WebSocket
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// the upgrade needs the original writer's Hijacker
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, service.ErrDifficultyNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrLevelLocked),
		errors.Is(err, engine.ErrDuplicateTile),
		errors.Is(err, engine.ErrTileClaimed),
		errors.Is(err, engine.ErrQuestionOpen),
		errors.Is(err, engine.ErrNoActiveQuestion),
		errors.Is(err, engine.ErrNotOnBoard),
		errors.Is(err, engine.ErrAIBusy),
		errors.Is(err, engine.ErrNoAITurn),
		errors.Is(err, engine.ErrWrongScreen),
		errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, engine.ErrEmptyAnswer),
		errors.Is(err, engine.ErrInvalidChoice),
		errors.Is(err, engine.ErrInvalidLevel),
		errors.Is(err, engine.ErrEmptyNickname),
		errors.Is(err, engine.ErrInvalidSettings),
		errors.Is(err, engine.ErrNoQuestionForTile),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondError(w, status, err.Error())
}

// decode reads an optional JSON body into v
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func levelVar(r *http.Request) (int, error) {
	level, err := strconv.Atoi(mux.Vars(r)["level"])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidLevel, mux.Vars(r)["level"])
	}
	return level, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nickname   string `json:"nickname,omitempty"`
		Difficulty string `json:"difficulty,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.Nickname, req.Difficulty)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("session created", "session_id", info.ID, "difficulty", info.Difficulty)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "session_deleted", map[string]string{"session_id": sessionID})
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Navigation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.Start(r.Context(), mux.Vars(r)["id"], req.Nickname)
	})
}

func (s *Server) handleFinishIntro(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.FinishIntro(r.Context(), mux.Vars(r)["id"])
	})
}

func (s *Server) handleShowMap(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.ShowMap(r.Context(), mux.Vars(r)["id"])
	})
}

func (s *Server) handleEnterLevel(w http.ResponseWriter, r *http.Request) {
	level, err := levelVar(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.EnterLevel(r.Context(), mux.Vars(r)["id"], level)
	})
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	level, err := levelVar(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	board, err := s.service.GetBoard(r.Context(), mux.Vars(r)["id"], level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (s *Server) command(w http.ResponseWriter, r *http.Request, op func() (*service.CommandResult, error)) {
	result, err := op()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Question Handlers

func (s *Server) handleOpenQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Value    int    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.OpenQuestion(r.Context(), mux.Vars(r)["id"], req.Category, req.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCloseQuestion(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.CloseQuestion(r.Context(), mux.Vars(r)["id"])
	})
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode   engine.AnswerMode `json:"mode"`
		Answer string            `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mode == "" {
		req.Mode = engine.ModeText
	}

	result, err := s.service.SubmitAnswer(r.Context(), mux.Vars(r)["id"], engine.Answer{Mode: req.Mode, Text: req.Answer})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGiveUp(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.GiveUp(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAITurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level int `json:"level,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.RequestAITurn(r.Context(), mux.Vars(r)["id"], req.Level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusAccepted
	if !result.Started {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

// Run Lifecycle Handlers

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.Replay(r.Context(), mux.Vars(r)["id"], req.Mode)
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.Reset(r.Context(), mux.Vars(r)["id"])
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings engine.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.command(w, r, func() (*service.CommandResult, error) {
		return s.service.UpdateSettings(r.Context(), mux.Vars(r)["id"], settings)
	})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.GetSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetPractice(w http.ResponseWriter, r *http.Request) {
	practice, err := s.service.GetPractice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, practice)
}

func (s *Server) handleCheckPractice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"question_id"`
		Choice     string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := s.service.CheckPractice(r.Context(), req.QuestionID, req.Choice)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Configuration Handlers

func (s *Server) handleListDifficulties(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListDifficulties(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDifficulty(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")
	tuning, err := s.service.GetDifficulty(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tuning)
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.CatalogCoverage(r.Context(), r.URL.Query().Get("difficulty"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}
