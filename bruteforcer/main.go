// Command bruteforcer plays complete Trivia Journey runs against a running
// server through the REST API. It is used to smoke-test a deployment and to
// measure how a preset plays out: give it the question catalog and it answers
// from the key (optionally missing every nth question), without one it guesses
// among the multiple choice options.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/trivia-journey/game/engine"
)

// Player runs a session from the map to the end screen
type Player struct {
	client   *Client
	strategy *Strategy
	logger   *slog.Logger
	// pause runs after every answer and whenever the board has nothing to open
	pause    func(ctx context.Context) error
	maxWaits int
}

// errStuck means the board never offered another tile
var errStuck = errors.New("no playable tile appeared")

func sleeper(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if d <= 0 {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
}

func isConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// PlayLevel answers tiles until the level is complete
func (p *Player) PlayLevel(ctx context.Context, level int) error {
	if _, err := p.client.EnterLevel(ctx, level); err != nil {
		return fmt.Errorf("enter level %d: %w", level, err)
	}

	waits := 0
	for {
		board, err := p.client.Board(ctx, level)
		if err != nil {
			return fmt.Errorf("board: %w", err)
		}
		if board.Completed {
			p.logger.Info("city complete", "level", level, "city", board.City)
			return nil
		}

		tile, ok := p.strategy.NextTile(board)
		if !ok {
			// The AI holds the last open tiles
			waits++
			if waits > p.maxWaits {
				return fmt.Errorf("level %d: %w", level, errStuck)
			}
			if err := p.pause(ctx); err != nil {
				return err
			}
			continue
		}
		waits = 0

		q, err := p.client.OpenQuestion(ctx, tile.Category, tile.Value)
		if err != nil {
			if isConflict(err) {
				// Claimed or played by the AI since the board was read
				p.logger.Debug("tile no longer available", "category", tile.Category, "value", tile.Value, "error", err)
				continue
			}
			return fmt.Errorf("open %s %d: %w", tile.Category, tile.Value, err)
		}

		mode, answer, ok := p.strategy.Answer(q)
		var correct bool
		if ok {
			r, err := p.client.Answer(ctx, mode, answer)
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			correct = r.Resolution != nil && r.Resolution.Correct
		} else {
			r, err := p.client.GiveUp(ctx)
			if err != nil {
				return fmt.Errorf("give up: %w", err)
			}
			correct = r.Resolution != nil && r.Resolution.Correct
		}
		p.logger.Debug("answered", "category", tile.Category, "value", tile.Value, "mode", mode, "correct", correct)

		if err := p.pause(ctx); err != nil {
			return err
		}
	}
}

// Play plays every city in order and returns the end-of-run summary
func (p *Player) Play(ctx context.Context) (*engine.Summary, error) {
	p.strategy.Reset()
	for level := engine.MinLevel; level <= engine.MaxLevel; level++ {
		if err := p.PlayLevel(ctx, level); err != nil {
			return nil, err
		}
	}
	return p.client.Summary(ctx)
}

// prepare creates or resumes a session and leaves it on the map
func prepare(ctx context.Context, client *Client, sessionID, nickname, difficulty string, logger *slog.Logger) error {
	if sessionID != "" {
		client.sessionID = sessionID
		info, err := client.GetSession(ctx)
		if err == nil {
			logger.Info("resuming session", "session_id", info.ID, "difficulty", info.Difficulty)
			if info.State != nil && info.State.Nickname == "" {
				if _, err := client.Start(ctx, nickname); err != nil {
					return fmt.Errorf("start: %w", err)
				}
			}
			_, err = client.Replay(ctx, difficulty)
			return err
		}
		logger.Warn("failed to resume session (may be expired), creating a new one", "error", err)
	}

	info, err := client.CreateSession(ctx, nickname, difficulty)
	if err != nil {
		return err
	}
	logger.Info("session created", "session_id", info.ID, "difficulty", info.Difficulty)
	_, err = client.FinishIntro(ctx)
	return err
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("v") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var catalog *engine.Catalog
	if path := cmd.String("catalog"); path != "" {
		c, err := engine.LoadCatalog(path)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		catalog = c
		logger.Info("answering from catalog", "path", path, "questions", len(c.Questions))
	}

	logger.Info("connecting to game server", "url", cmd.String("url"))
	client := NewClient(cmd.String("url"))

	// Check for saved session ID
	sessionFile := ".session"
	sessionID := cmd.String("continue")
	if sessionID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			sessionID = string(bytes.TrimSpace(data))
		}
	}

	if err := prepare(ctx, client, sessionID, cmd.String("nickname"), cmd.String("difficulty"), logger); err != nil {
		return fmt.Errorf("prepare session: %w", err)
	}
	if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
		logger.Warn("failed to save session ID", "error", err)
	}

	player := &Player{
		client:   client,
		strategy: NewStrategy(catalog, uint32(cmd.Int("seed")), int(cmd.Int("miss-every"))),
		logger:   logger,
		pause:    sleeper(cmd.Duration("delay")),
		maxWaits: int(cmd.Int("max-waits")),
	}

	runs := int(cmd.Int("runs"))
	wins := 0
	for i := 1; i <= runs; i++ {
		if i > 1 {
			if _, err := client.Replay(ctx, ""); err != nil {
				return fmt.Errorf("replay: %w", err)
			}
		}

		summary, err := player.Play(ctx)
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		if summary.Winner == engine.PartyPlayer {
			wins++
		}
		logger.Info("run finished",
			"run", i,
			"player", summary.Scores.Player,
			"ai", summary.Scores.AI,
			"winner", summary.Winner,
			"accuracy", summary.Accuracy)
	}

	logger.Info("done", "session_id", client.sessionID, "runs", runs, "wins", wins)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "bruteforcer",
		Usage: "Play complete Trivia Journey runs through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "difficulty", Usage: "Difficulty preset (easy, normal, hard)"},
			&cli.StringFlag{Name: "nickname", Value: "Bot", Usage: "Player nickname"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.StringFlag{Name: "catalog", Usage: "Question catalog to answer from (guess when empty)"},
			&cli.IntFlag{Name: "miss-every", Usage: "Deliberately guess every nth known answer (0 = never)"},
			&cli.IntFlag{Name: "runs", Value: 1, Usage: "Number of runs to play"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed for guessing"},
			&cli.IntFlag{Name: "max-waits", Value: 100, Usage: "Maximum pauses while the AI holds the last tiles"},
			&cli.DurationFlag{Name: "delay", Value: 500 * time.Millisecond, Usage: "Pause after each answer and while waiting on the AI"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
