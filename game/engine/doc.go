// Package engine provides the core game logic for the Ecuador Trivia Journey.
//
// The engine package implements the game mechanics including:
//   - Three cities (levels) unlocked in order, each a category by value board
//   - Tile resolution with money scoring, streaks and per-city statistics
//   - An AI opponent that prefers high-value tiles and answers with a
//     level-dependent success probability
//   - Fuzzy answer matching tolerant of case, accents and small typos
//   - A deterministic Mulberry32 PRNG shared by choice shuffling and the AI
//   - Session state defaults, repair and difficulty preset validation
//
// Core Types:
//
// GameEngine owns a SessionState together with its PRNG and AIOpponent and
// exposes every player command (Start, EnterLevel, OpenQuestion, Submit,
// GiveUp, Timeout, Replay, Reset). Catalog is the read-only question bank
// shared between sessions. Tuning is a difficulty preset loaded from JSON.
//
// Usage:
//
//	catalog, err := engine.LoadCatalog("data/questions.json")
//	if err != nil {
//		log.Printf("playing without questions: %v", err)
//	}
//
//	gameEngine, err := engine.NewEngine(nil, catalog, engine.DefaultTuning())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.Start("Ana")
//	gameEngine.FinishIntro()
//	gameEngine.EnterLevel(1)
//	gameEngine.OpenQuestion("History", 200)
//	res, err := gameEngine.Submit(engine.Answer{Mode: engine.ModeText, Text: "Quito"})
//
// Game Rules:
//
// A correct answer adds the tile value to the player's money, a wrong answer,
// a pass or a timeout subtracts it. Each tile is played once, by the player or
// the AI. A city is complete when every tile that has a question has been
// played, which unlocks the next city. Completing the third city ends the run.
//
// The engine never schedules anything. Countdown, AI think time and the settle
// delay before the AI's turn are driven by the session package, which calls
// Timeout, StartAITurn and ResolveAITurn when its timers fire.
package engine
