// Package session runs live game sessions for the Ecuador Trivia Journey.
//
// The session package implements:
//   - A Session actor serializing every command and timer callback on one mutex
//   - The question countdown, the settle delay and the AI think delay as
//     cancellable timers carrying tokens
//   - Snapshot encoding with a versioned envelope and migration of version 1
//     browser saves
//   - File and SQLite snapshot stores
//   - A Manager caching sessions in memory and restoring them on demand
//
// Core Types:
//
// Session wraps an engine.GameEngine. Each mutation persists a Snapshot and
// forwards the produced events to a Notifier. Manager creates, restores,
// evicts and deletes sessions. SessionPersistence is implemented by
// FilePersistence and SQLitePersistence.
//
// Timers:
//
// Opening a question arms the countdown. On expiry the question resolves as a
// timeout. Every player resolution arms the settle timer; when it fires and
// the level is still playable the AI claims a tile and the think timer is
// armed. Re-arming or disarming a slot invalidates its token, so a callback
// that was already queued does nothing. Close disarms everything and cancels
// the AI's claim. ManualScheduler drives the same timers deterministically.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("trivia.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManager(catalog, session.Options{
//		Persistence: store,
//		Notifier:    hub,
//		Tunings:     configManager,
//		Logger:      logger,
//	})
//
//	sess, err := manager.Create("", "normal")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Start("Ana")
//
// Corrupt snapshots:
//
// A snapshot that cannot be decoded is discarded with a warning and the
// session starts over under the same ID.
package session
