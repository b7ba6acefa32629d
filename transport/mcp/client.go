package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ecuador Trivia Journey",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ecuador Trivia Journey - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Travel Quito, Guayaquil and Cuenca answering trivia tiles. Each city is a board of
categories by dollar values. A right answer adds the tile's value, a wrong one
subtracts it. An AI opponent claims tiles between your turns. Finish with more
money than the AI.

TYPICAL FLOW:
create_session (with nickname) -> finish_intro -> enter_level 1 -> view_board
-> open_question -> submit_answer -> view_board ... -> summary

Call game_instructions for the full rules.`),
	)

	c.registerTools()
}

func sessionProp() map[string]any {
	return map[string]any{"type": "string", "description": "Session ID"}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func sessionOnly() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{"session_id": sessionProp()},
		Required:   []string{"session_id"},
	}
}

func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session. With a nickname the run starts at the intro screen.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"nickname": stringProp("Player nickname (optional)"),
				"difficulty": map[string]any{
					"type":        "string",
					"description": "Difficulty preset (optional, default normal)",
					"enum":        []string{"easy", "normal", "hard"},
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: noArgs(),
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session, including any open question",
		InputSchema: sessionOnly(),
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and its saved progress",
		InputSchema: sessionOnly(),
	}, c.handleDeleteSession)

	// Navigation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get scores, unlocked cities and the current screen",
		InputSchema: sessionOnly(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_run",
		Description: "Record the player's nickname and show the intro",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"nickname":   stringProp("Player nickname"),
			},
			Required: []string{"session_id", "nickname"},
		},
	}, c.handleStart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "finish_intro",
		Description: "Leave the intro and show the city map",
		InputSchema: sessionOnly(),
	}, c.handleFinishIntro)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "show_map",
		Description: "Return to the city map",
		InputSchema: sessionOnly(),
	}, c.handleShowMap)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "enter_level",
		Description: "Enter a city's board (1 Quito, 2 Guayaquil, 3 Cuenca). The city must be unlocked.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"level":      intProp("City level, 1 to 3"),
			},
			Required: []string{"session_id", "level"},
		},
	}, c.handleEnterLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "view_board",
		Description: "Show a city's board: which tiles are open, played, claimed by the AI or unavailable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"level":      intProp("City level (optional, default current)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleViewBoard)

	// Questions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "open_question",
		Description: "Open a tile on the current board. The answer timer starts now.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"category":   stringProp("Category name as shown on the board"),
				"value":      intProp("Tile value, e.g. 200"),
			},
			Required: []string{"session_id", "category", "value"},
		},
	}, c.handleOpenQuestion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_answer",
		Description: "Answer the open question. Text answers are matched leniently; choice answers must be one of the offered choices.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"answer":     stringProp("Your answer"),
				"mode": map[string]any{
					"type":        "string",
					"description": "text (default) or choice",
					"enum":        []string{"text", "choice"},
				},
			},
			Required: []string{"session_id", "answer"},
		},
	}, c.handleSubmitAnswer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "give_up",
		Description: "Pass on the open question. Counts as wrong.",
		InputSchema: sessionOnly(),
	}, c.handleGiveUp)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_question",
		Description: "Close the open question without answering. The tile stays open.",
		InputSchema: sessionOnly(),
	}, c.handleCloseQuestion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "ai_turn",
		Description: "Let the AI opponent claim a tile now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"level":      intProp("City level (optional, default current)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleAITurn)

	// Run lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "replay",
		Description: "Start a new run on the map, optionally on another difficulty",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"mode":       stringProp("Difficulty for the new run (optional, default keeps the current one)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReplay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Clear all progress, including the nickname",
		InputSchema: sessionOnly(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "summary",
		Description: "Get the end-of-run report with per-city results",
		InputSchema: sessionOnly(),
	}, c.handleSummary)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "practice",
		Description: "Get a warm-up multiple choice question that does not affect the score",
		InputSchema: sessionOnly(),
	}, c.handlePractice)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "check_practice",
		Description: "Grade a warm-up choice",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"question_id": stringProp("Practice question ID"),
				"choice":      stringProp("Chosen answer"),
			},
			Required: []string{"question_id", "choice"},
		},
	}, c.handleCheckPractice)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_difficulties",
		Description: "List difficulty presets with timers and AI strength",
		InputSchema: noArgs(),
	}, c.handleListDifficulties)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "catalog_coverage",
		Description: "Report how many board tiles have a question for each city",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"difficulty": stringProp("Difficulty preset (optional, default normal)"),
			},
		},
	}, c.handleCatalogCoverage)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: noArgs(),
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return map[string]any{}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// intArg accepts JSON numbers and numeric strings
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{}
	if nickname := stringArg(args, "nickname"); nickname != "" {
		body["nickname"] = nickname
	}
	if difficulty := stringArg(args, "difficulty"); difficulty != "" {
		body["difficulty"] = difficulty
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nDifficulty: %s\n%s",
		info.ID, info.Difficulty, formatState(info.State))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		nickname := "-"
		if s.State != nil && s.State.Nickname != "" {
			nickname = s.State.Nickname
		}
		fmt.Fprintf(&b, "- %s (Player: %s, Difficulty: %s, Created: %s)\n",
			s.ID, nickname, s.Difficulty, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, ""), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted", sessionID)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.SessionState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) command(ctx context.Context, method, path string, body any) (*mcp.CallToolResult, error) {
	var result service.CommandResult
	if err := c.apiCall(ctx, method, path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatEvents(result.Events) + formatState(result.State)), nil
}

func (c *Client) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{"nickname": stringArg(args, "nickname")}
	return c.command(ctx, "POST", sessionPath(stringArg(args, "session_id"), "/start"), body)
}

func (c *Client) handleFinishIntro(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, "POST", sessionPath(stringArg(arguments(request), "session_id"), "/intro/finish"), nil)
}

func (c *Client) handleShowMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, "POST", sessionPath(stringArg(arguments(request), "session_id"), "/map"), nil)
}

func (c *Client) handleEnterLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := sessionPath(stringArg(args, "session_id"), fmt.Sprintf("/levels/%d/enter", intArg(args, "level")))
	return c.command(ctx, "POST", path, nil)
}

func (c *Client) handleViewBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := sessionPath(stringArg(args, "session_id"), fmt.Sprintf("/levels/%d/board", intArg(args, "level")))

	var board engine.BoardView
	if err := c.apiCall(ctx, "GET", path, nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoard(&board)), nil
}

func (c *Client) handleOpenQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]any{
		"category": stringArg(args, "category"),
		"value":    intArg(args, "value"),
	}

	var result service.QuestionResult
	if err := c.apiCall(ctx, "POST", sessionPath(stringArg(args, "session_id"), "/question"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatQuestion(result.Question)), nil
}

func (c *Client) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	mode := stringArg(args, "mode")
	if mode == "" {
		mode = string(engine.ModeText)
	}
	body := map[string]string{
		"mode":   mode,
		"answer": stringArg(args, "answer"),
	}

	var result service.AnswerResult
	if err := c.apiCall(ctx, "POST", sessionPath(stringArg(args, "session_id"), "/answer"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResolution(&result)), nil
}

func (c *Client) handleGiveUp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.AnswerResult
	if err := c.apiCall(ctx, "POST", sessionPath(stringArg(arguments(request), "session_id"), "/give-up"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResolution(&result)), nil
}

func (c *Client) handleCloseQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, "DELETE", sessionPath(stringArg(arguments(request), "session_id"), "/question"), nil)
}

func (c *Client) handleAITurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]int{"level": intArg(args, "level")}

	var result service.AITurnResult
	if err := c.apiCall(ctx, "POST", sessionPath(stringArg(args, "session_id"), "/ai-turn"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Started {
		return mcp.NewToolResultText("The AI has no tile to play on this level."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("AI is thinking about %s - $%d (level %d), resolving in %dms.\nCall game_state or view_board afterwards to see the outcome.",
		result.Category, result.Value, result.Level, result.DelayMs)), nil
}

func (c *Client) handleReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{"mode": stringArg(args, "mode")}
	return c.command(ctx, "POST", sessionPath(stringArg(args, "session_id"), "/replay"), body)
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.command(ctx, "POST", sessionPath(stringArg(arguments(request), "session_id"), "/reset"), nil)
}

func (c *Client) handleSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var summary engine.Summary
	if err := c.apiCall(ctx, "GET", sessionPath(stringArg(arguments(request), "session_id"), "/summary"), nil, &summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSummary(&summary)), nil
}

func (c *Client) handlePractice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var practice service.PracticeInfo
	if err := c.apiCall(ctx, "GET", sessionPath(stringArg(arguments(request), "session_id"), "/practice"), nil, &practice); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Practice question (id %s): %s\n", practice.QuestionID, practice.Prompt)
	for i, choice := range practice.Choices {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, choice)
	}
	b.WriteString("Use check_practice with the question id and your choice.\n")
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCheckPractice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{
		"question_id": stringArg(args, "question_id"),
		"choice":      stringArg(args, "choice"),
	}

	var result service.PracticeResult
	if err := c.apiCall(ctx, "POST", "/api/practice/check", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.Correct {
		return mcp.NewToolResultText("Correct!"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Not quite. The answer is %s.", result.Answer)), nil
}

func (c *Client) handleListDifficulties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var list []service.DifficultyInfo
	if err := c.apiCall(ctx, "GET", "/api/difficulties", nil, &list); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Difficulties:\n\n")
	for _, d := range list {
		fmt.Fprintf(&b, "- %s: %s\n  timer %ds, tiles %v, AI success L1 %.0f%% L2 %.0f%% L3 %.0f%%, AI thinks %d-%dms\n",
			d.ID, d.Description, d.TimerSeconds, d.TileValues,
			d.AISuccess[1]*100, d.AISuccess[2]*100, d.AISuccess[3]*100,
			d.ThinkMs[0], d.ThinkMs[1])
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCatalogCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/catalog/coverage"
	if difficulty := stringArg(arguments(request), "difficulty"); difficulty != "" {
		path += "?difficulty=" + url.QueryEscape(difficulty)
	}

	var report service.CoverageReport
	if err := c.apiCall(ctx, "GET", path, nil, &report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Catalog coverage (%s): %d questions\n", report.Difficulty, report.Questions)
	for _, l := range report.Levels {
		fmt.Fprintf(&b, "- L%d %s: %d/%d tiles playable\n", l.Level, l.City, l.Playable, l.Total)
	}
	for _, p := range report.Problems {
		fmt.Fprintf(&b, "! %s\n", p)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `Ecuador Trivia Journey - Complete Instructions

GAME OBJECTIVE:
Answer trivia about Ecuador across three cities and finish with more money than
the AI opponent.

CITIES:
1. Quito (unlocked from the start)
2. Guayaquil (unlocks when Quito is complete)
3. Cuenca (unlocks when Guayaquil is complete)

A city is complete when every playable tile on its board has been played, by you
or by the AI.

BOARD LEGEND (view_board):
  $200   open tile, ready to play
  P+ P-  you answered right / wrong
  A+ A-  the AI answered right / wrong
  AI?    the AI is thinking about this tile
  --     no question available for this tile

SCORING:
- Right answer: +value. Wrong answer, give up or timeout: -value.
- Scores can go negative.
- Each question has a countdown (see list_difficulties). When it runs out the
  answer counts as wrong.

ANSWERING:
- mode "text": free text. Accents, case, punctuation and small typos are
  forgiven; a close enough match is accepted.
- mode "choice": the answer must be exactly one of the offered choices.

THE AI OPPONENT:
- After each of your answers, and after a short pause, the AI claims a tile,
  preferring high values, thinks for a moment, then answers. Its accuracy
  depends on difficulty and drops in later cities.
- You may open other tiles while it thinks, but not the one it claimed.
- Use ai_turn to let it play immediately.

TOOLS:
create_session, start_run, finish_intro, show_map, enter_level, view_board,
open_question, submit_answer, give_up, close_question, ai_turn, game_state,
summary, replay, reset_game, practice, check_practice, list_difficulties,
catalog_coverage.

Good luck on your Ecuador Trivia Journey!`

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nDifficulty: %s\nCreated: %s\nAI: %s\n",
		info.ID, info.Difficulty, info.CreatedAt.Format(time.RFC3339), info.AIPhase)
	b.WriteString(formatState(info.State))
	if info.Question != nil {
		b.WriteString("\n")
		b.WriteString(formatQuestion(info.Question))
	}
	return b.String()
}

func formatState(state *engine.SessionState) string {
	if state == nil {
		return ""
	}
	var b strings.Builder
	nickname := state.Nickname
	if nickname == "" {
		nickname = "(not set)"
	}
	fmt.Fprintf(&b, "Player: %s\nScreen: %s\nScore: you $%d vs AI $%d\n",
		nickname, state.Screen, state.Scores.Player, state.Scores.AI)
	fmt.Fprintf(&b, "Current city: level %d\n", state.CurrentLevel)
	b.WriteString("Cities:")
	for level := engine.MinLevel; level <= engine.MaxLevel; level++ {
		status := "locked"
		if ls := state.Levels[level]; ls != nil {
			switch {
			case ls.Completed:
				status = "completed"
			case ls.Unlocked:
				status = fmt.Sprintf("open, %d played", len(ls.Tiles))
			}
		}
		fmt.Fprintf(&b, " L%d %s;", level, status)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Record: %d right, %d wrong, streak %d (best %d)\n",
		state.Stats.Correct, state.Stats.Incorrect, state.Stats.Streak, state.Stats.BestStreak)
	return b.String()
}

func formatEvents(events []engine.Event) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	for _, ev := range events {
		if ev.Message == "" {
			continue
		}
		fmt.Fprintf(&b, "> %s\n", ev.Message)
	}
	return b.String()
}

func tileMarker(tv engine.TileView) string {
	switch tv.Status {
	case engine.TileDisabled:
		return "--"
	case engine.TileClaimed:
		return "AI?"
	case engine.TilePlayed:
		if tv.Record == nil {
			return "??"
		}
		who := "P"
		if tv.Record.PlayedBy == engine.PartyAI {
			who = "A"
		}
		if tv.Record.Correct {
			return who + "+"
		}
		return who + "-"
	}
	return fmt.Sprintf("$%d", tv.Value)
}

func formatBoard(board *engine.BoardView) string {
	var b strings.Builder
	status := "open"
	if board.Completed {
		status = "completed"
	} else if !board.Unlocked {
		status = "locked"
	}
	fmt.Fprintf(&b, "%s (level %d, %s)\n\n", board.City, board.Level, status)

	width := 6
	for _, cat := range board.Categories {
		if len(cat) > width {
			width = len(cat)
		}
	}
	for _, cat := range board.Categories {
		fmt.Fprintf(&b, "%-*s ", width, cat)
	}
	b.WriteString("\n")
	for row := range board.Values {
		for _, col := range board.Columns {
			cell := ""
			if row < len(col) {
				cell = tileMarker(col[row])
			}
			fmt.Fprintf(&b, "%-*s ", width, cell)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatQuestion(q *service.QuestionView) string {
	if q == nil {
		return "No open question\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s - $%d (level %d)\n%s\n", q.Category, q.Value, q.Level, q.Prompt)
	if len(q.Choices) > 0 {
		b.WriteString("Choices:\n")
		for i, choice := range q.Choices {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, choice)
		}
	}
	fmt.Fprintf(&b, "Time left: %ds\n", q.RemainingSeconds)
	return b.String()
}

func formatResolution(result *service.AnswerResult) string {
	if result.Resolution == nil {
		return formatState(result.State)
	}
	res := result.Resolution
	var b strings.Builder
	if res.Correct {
		fmt.Fprintf(&b, "Correct! +$%d\n", res.Delta)
	} else {
		fmt.Fprintf(&b, "Wrong. The answer was %s. -$%d\n", res.Answer, -res.Delta)
	}
	if res.ElapsedMs != nil {
		fmt.Fprintf(&b, "Answered in %.1fs\n", float64(*res.ElapsedMs)/1000)
	}
	if res.Completion.Completed {
		fmt.Fprintf(&b, "City complete!\n")
	}
	b.WriteString(formatState(result.State))
	return b.String()
}

func formatSummary(s *engine.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", s.ShareText)
	fmt.Fprintf(&b, "Final score: you $%d vs AI $%d (winner: %s)\n", s.Scores.Player, s.Scores.AI, s.Winner)
	fmt.Fprintf(&b, "Accuracy: %d%% (%d right, %d wrong), best streak %d\n",
		s.Accuracy, s.Stats.Correct, s.Stats.Incorrect, s.Stats.BestStreak)
	if s.Stats.FastestMs != nil {
		fmt.Fprintf(&b, "Fastest right answer: %.1fs\n", float64(*s.Stats.FastestMs)/1000)
	}
	fmt.Fprintf(&b, "Time played: %.1f minutes\n\n", s.ElapsedMinutes)
	for _, city := range s.Cities {
		done := ""
		if city.Completed {
			done = " (completed)"
		}
		fmt.Fprintf(&b, "- %s%s: %d right, %d wrong, $%d\n", city.City, done, city.Correct, city.Incorrect, city.Money)
	}
	return b.String()
}
