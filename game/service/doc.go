// Package service provides the business logic layer for Trivia Journey.
//
// The service package implements:
//   - Session creation, lookup and deletion
//   - Difficulty preset resolution
//   - Question, answer and AI turn commands
//   - Catalog coverage reports
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads difficulty presets.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// game sessions. Timers and persistence live in the session package; this
// layer turns ids and requests into session calls and shapes the results.
// Open questions are returned as QuestionView values, which never carry the
// expected answer.
//
// Usage:
//
//	sessions := session.NewManager(catalog, session.Options{Tunings: configs})
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, "Ana", "normal")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc.FinishIntro(ctx, info.ID)
//	svc.EnterLevel(ctx, info.ID, 1)
//	q, err := svc.OpenQuestion(ctx, info.ID, "History", 200)
//	res, err := svc.SubmitAnswer(ctx, info.ID, engine.Answer{Mode: engine.ModeText, Text: "Quito"})
package service
