// Package mcp exposes Trivia Journey to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call is translated to a REST request
// against the api package and the JSON response is rendered as text.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, delete_session
//   - game_state: Scores, cities and the current screen
//   - start_run, finish_intro, show_map, enter_level
//   - view_board: Text rendering of a city's tiles
//   - open_question, submit_answer, give_up, close_question
//   - ai_turn: Let the opponent play immediately
//   - replay, reset_game, summary
//   - practice, check_practice: Warm-up question outside the score
//   - list_difficulties, catalog_coverage
//   - game_instructions: Full rules
//
// Transport Modes:
//   - Stdio: the mcp command serves the client over stdin/stdout
//   - HTTP: the serve command mounts the same tools at POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
