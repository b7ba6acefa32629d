package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
)

// APIError is a non-2xx response from the game server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Client drives a single session over the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &errResp)
		if errResp.Error == "" {
			errResp.Error = string(bytes.TrimSpace(data))
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) CreateSession(ctx context.Context, nickname, difficulty string) (*service.SessionInfo, error) {
	req := map[string]string{"nickname": nickname}
	if difficulty != "" {
		req["difficulty"] = difficulty
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

func (c *Client) GetSession(ctx context.Context) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Start(ctx context.Context, nickname string) (*service.CommandResult, error) {
	var res service.CommandResult
	err := c.do(ctx, http.MethodPost, c.sessionPath("/start"), map[string]string{"nickname": nickname}, &res)
	return &res, err
}

func (c *Client) FinishIntro(ctx context.Context) (*service.CommandResult, error) {
	var res service.CommandResult
	err := c.do(ctx, http.MethodPost, c.sessionPath("/intro/finish"), nil, &res)
	return &res, err
}

func (c *Client) Replay(ctx context.Context, mode string) (*service.CommandResult, error) {
	var res service.CommandResult
	err := c.do(ctx, http.MethodPost, c.sessionPath("/replay"), map[string]string{"mode": mode}, &res)
	return &res, err
}

func (c *Client) EnterLevel(ctx context.Context, level int) (*service.CommandResult, error) {
	var res service.CommandResult
	err := c.do(ctx, http.MethodPost, c.sessionPath(fmt.Sprintf("/levels/%d/enter", level)), nil, &res)
	return &res, err
}

func (c *Client) Board(ctx context.Context, level int) (*engine.BoardView, error) {
	var board engine.BoardView
	if err := c.do(ctx, http.MethodGet, c.sessionPath(fmt.Sprintf("/levels/%d/board", level)), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) OpenQuestion(ctx context.Context, category string, value int) (*service.QuestionView, error) {
	req := map[string]any{"category": category, "value": value}
	var res service.QuestionResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/question"), req, &res); err != nil {
		return nil, err
	}
	return res.Question, nil
}

func (c *Client) Answer(ctx context.Context, mode engine.AnswerMode, answer string) (*service.AnswerResult, error) {
	req := map[string]string{"mode": string(mode), "answer": answer}
	var res service.AnswerResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/answer"), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GiveUp(ctx context.Context) (*service.AnswerResult, error) {
	var res service.AnswerResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/give-up"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Summary(ctx context.Context) (*engine.Summary, error) {
	var summary engine.Summary
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/summary"), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
