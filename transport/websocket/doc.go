// Package websocket pushes Trivia Journey session updates to browsers.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine.
//
// Clients subscribe to one session via query parameter (/ws?session=abc).
// The Hub implements session.Notifier: every committed change, including
// ones made by timers such as the countdown expiring or the AI resolving,
// is pushed as
//
//	{"session_id": "abc", "event": "state_update", "events": [...], "state": {...}}
//
// Commands are not accepted over the socket; clients use the HTTP API or MCP.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	sessions := session.NewManager(catalog, session.Options{Notifier: hub})
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Notify never blocks the caller. Updates are queued and dropped when the
// queue is full, and a client whose own buffer fills up is disconnected.
package websocket
