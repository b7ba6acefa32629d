// Package api provides HTTP REST API handlers for Trivia Journey.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({nickname, difficulty}, both optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info, including any open question
//   - DELETE /api/sessions/{id} - Delete a session and its snapshot
//
// Navigation:
//   - GET /api/sessions/{id}/state - Persisted session state
//   - POST /api/sessions/{id}/start - Record the nickname ({nickname})
//   - POST /api/sessions/{id}/intro/finish - Leave the intro for the map
//   - POST /api/sessions/{id}/map - Return to the map
//   - POST /api/sessions/{id}/levels/{level}/enter - Open a city's board
//   - GET /api/sessions/{id}/levels/{level}/board - Render a board
//
// Questions:
//   - POST /api/sessions/{id}/question - Open a tile ({category, value})
//   - DELETE /api/sessions/{id}/question - Abandon the open question
//   - POST /api/sessions/{id}/answer - Answer ({mode: text|choice, answer})
//   - POST /api/sessions/{id}/give-up - Pass on the open question
//   - POST /api/sessions/{id}/ai-turn - Let the AI play now ({level}, 0 = current)
//
// Run Lifecycle:
//   - POST /api/sessions/{id}/replay - New run ({mode}: "", easy, normal, hard)
//   - POST /api/sessions/{id}/reset - Clear all progress
//   - PUT /api/sessions/{id}/settings - Presentation settings
//   - GET /api/sessions/{id}/summary - End-of-run report
//   - GET /api/sessions/{id}/practice - Warm-up question
//   - POST /api/practice/check - Grade a warm-up choice ({question_id, choice})
//
// Configuration:
//   - GET /api/difficulties - List difficulty presets
//   - GET /api/difficulties/{name} - Full preset
//   - GET /api/catalog/coverage - Board coverage report (?difficulty=)
//   - GET /api/health - Liveness
//
// WebSocket:
//   - GET /ws?session={id} - Stream of state updates for one session
//
// Errors are returned as {"error": "..."}. Unknown sessions and presets map to
// 404, moves that conflict with the session's state (locked level, tile
// already played or claimed, question already open, AI busy) to 409, and
// invalid input to 400.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	svc := service.NewGameService(sessions, configs)
//	server := api.NewServer(svc, hub, logger)
//	http.ListenAndServe(":8080", server)
package api
