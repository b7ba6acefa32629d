package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/trivia-journey/game/config"
	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/session"
	"github.com/wricardo/trivia-journey/transport/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServerConfig(t *testing.T, store string) *config.ServerConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.ServerConfig{
		HTTPAddr:    ":0",
		ConfigDir:   "configs",
		CatalogPath: filepath.Join("data", "questions.json"),
		SessionsDir: filepath.Join(dir, "sessions"),
		Store:       store,
		DBPath:      filepath.Join(dir, "trivia.db"),
		SessionTTL:  time.Hour,
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Ecuador Trivia Journey Server" {
		t.Errorf("Expected app name 'Ecuador Trivia Journey Server', got %s", AppName)
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()

	if app.DefaultCommand != "serve" {
		t.Errorf("Expected default command serve, got %s", app.DefaultCommand)
	}

	names := map[string]bool{}
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
		if cmd.Action == nil {
			t.Errorf("Command %s has no action", cmd.Name)
		}
	}
	for _, want := range []string{"serve", "mcp"} {
		if !names[want] {
			t.Errorf("Expected command %s", want)
		}
	}
}

func TestLocalURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9090", "http://localhost:9090"},
		{"127.0.0.1:7000", "http://127.0.0.1:7000"},
		{"example.com:80", "http://example.com:80"},
		{"localhost", "http://localhost"},
	}

	for _, tt := range tests {
		if got := localURL(tt.addr); got != tt.want {
			t.Errorf("localURL(%q) = %s, expected %s", tt.addr, got, tt.want)
		}
	}
}

func TestOpenPersistence(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		p, closeFn, err := openPersistence(testServerConfig(t, config.StoreMemory))
		if err != nil {
			t.Fatalf("Failed to open memory store: %v", err)
		}
		if p != nil || closeFn != nil {
			t.Error("Expected no persistence for the memory store")
		}
	})

	t.Run("file", func(t *testing.T) {
		cfg := testServerConfig(t, config.StoreFile)
		p, _, err := openPersistence(cfg)
		if err != nil {
			t.Fatalf("Failed to open file store: %v", err)
		}
		if _, ok := p.(*session.FilePersistence); !ok {
			t.Errorf("Expected file persistence, got %T", p)
		}
		if _, err := os.Stat(cfg.SessionsDir); err != nil {
			t.Errorf("Expected sessions directory to be created: %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		p, closeFn, err := openPersistence(testServerConfig(t, config.StoreSQLite))
		if err != nil {
			t.Fatalf("Failed to open sqlite store: %v", err)
		}
		if _, ok := p.(*session.SQLitePersistence); !ok {
			t.Errorf("Expected sqlite persistence, got %T", p)
		}
		if closeFn == nil {
			t.Fatal("Expected a close function for sqlite")
		}
		if err := closeFn(); err != nil {
			t.Errorf("Failed to close sqlite store: %v", err)
		}
	})
}

func TestBuildServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	svcs, err := buildServices(testServerConfig(t, config.StoreFile), discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	info, err := svcs.game.CreateSession(context.Background(), "Ana", "hard")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if info.Difficulty != "hard" {
		t.Errorf("Expected difficulty hard, got %s", info.Difficulty)
	}
	if !svcs.persistence.Exists(info.ID) {
		t.Error("Expected session snapshot to be persisted")
	}
	if svcs.sessions.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", svcs.sessions.Count())
	}
}

func TestBuildServices_InvalidConfigDir(t *testing.T) {
	cfg := testServerConfig(t, config.StoreMemory)
	cfg.ConfigDir = "/non/existent/path"

	if _, err := buildServices(cfg, discardLogger()); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestBuildServices_MissingCatalog(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	cfg := testServerConfig(t, config.StoreMemory)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.json")

	svcs, err := buildServices(cfg, discardLogger())
	if err != nil {
		t.Fatalf("Expected server to start without a catalog, got %v", err)
	}
	defer svcs.Close()

	if n := len(svcs.sessions.Catalog().Questions); n != 0 {
		t.Errorf("Expected empty catalog, got %d questions", n)
	}
}

func TestServicesClose(t *testing.T) {
	var order []int
	svcs := &services{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return io.ErrClosedPipe },
	}}

	err := svcs.Close()
	if err == nil || !strings.Contains(err.Error(), io.ErrClosedPipe.Error()) {
		t.Errorf("Expected close error to be returned, got %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("Expected closers to run in reverse order, got %v", order)
	}
}

func TestPruneOrphans(t *testing.T) {
	persistence, err := session.NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	manager := session.NewManager(engine.EmptyCatalog(), session.Options{
		Persistence: persistence,
		Logger:      discardLogger(),
	})
	defer manager.Close()

	kept, err := manager.Create("kept", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	orphan, err := manager.Create("orphan", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := persistence.Delete(orphan.ID); err != nil {
		t.Fatalf("Failed to delete snapshot: %v", err)
	}

	if pruned := pruneOrphans(manager, persistence); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 remaining session, got %d", manager.Count())
	}
	if _, err := manager.Get(kept.ID); err != nil {
		t.Errorf("Expected kept session to survive: %v", err)
	}

	if pruned := pruneOrphans(manager, nil); pruned != 0 {
		t.Errorf("Expected nothing pruned without persistence, got %d", pruned)
	}
}

func TestMaintainSessions_StopsOnCancel(t *testing.T) {
	manager := session.NewManager(engine.EmptyCatalog(), session.Options{Logger: discardLogger()})
	defer manager.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- maintainSessions(ctx, manager, nil, time.Hour, discardLogger())
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("maintainSessions did not stop after cancel")
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://localhost:0").GetMCPServer())

	t.Run("rejects GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", rec.Code)
		}
	})

	t.Run("initialize", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %s", ct)
		}
		if !strings.Contains(rec.Body.String(), "Ecuador Trivia Journey") {
			t.Errorf("Expected server name in response, got %s", rec.Body.String())
		}
	})

	t.Run("tools list", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))

		for _, tool := range []string{"create_session", "view_board", "submit_answer", "ai_turn"} {
			if !strings.Contains(rec.Body.String(), tool) {
				t.Errorf("Expected tool %s in list", tool)
			}
		}
	})
}

func TestAPIReachable(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !apiReachable(context.Background(), healthy.URL) {
		t.Error("Expected healthy API to be reachable")
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	if apiReachable(context.Background(), broken.URL) {
		t.Error("Expected failing API to be unreachable")
	}

	if apiReachable(context.Background(), "http://127.0.0.1:1") {
		t.Error("Expected closed port to be unreachable")
	}
}
