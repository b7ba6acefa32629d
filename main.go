// Command trivia-journey starts the Ecuador Trivia Journey server.
//
// It supports two commands:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against an existing API, or spins up an internal one if none is reachable
//
// Process settings come from the environment (optionally loaded from .env):
// listen address, preset and catalog locations, the session store, log level,
// session TTL and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/trivia-journey/api"
	"github.com/wricardo/trivia-journey/game/config"
	"github.com/wricardo/trivia-journey/game/engine"
	"github.com/wricardo/trivia-journey/game/service"
	"github.com/wricardo/trivia-journey/game/session"
	"github.com/wricardo/trivia-journey/transport/mcp"
	"github.com/wricardo/trivia-journey/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ecuador Trivia Journey Server"
)

const (
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "trivia-journey",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "HTTP listen address (overrides HTTP_ADDR)",
					},
				},
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP API if none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "REST API to proxy to",
						Sources: cli.EnvVars("TRIVIA_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
		},
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// services holds everything a running server needs
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	hub         *websocket.Hub
	closers     []func() error
}

func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openPersistence(cfg *config.ServerConfig) (session.SessionPersistence, func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		p, err := session.NewSQLitePersistence(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return p, p.Close, nil
	case config.StoreMemory:
		return nil, nil, nil
	default:
		p, err := session.NewFilePersistence(cfg.SessionsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		return p, nil, nil
	}
}

// buildServices wires the catalog, presets, session store, WebSocket hub and
// game service. A catalog that fails to load is logged and replaced with an
// empty one so the server still starts.
func buildServices(cfg *config.ServerConfig, logger *slog.Logger) (*services, error) {
	catalog, err := engine.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("question catalog unavailable, boards will be empty", "path", cfg.CatalogPath, "error", err)
	} else {
		logger.Info("loaded question catalog", "path", cfg.CatalogPath, "questions", len(catalog.Questions))
	}

	configManager, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, closePersistence, err := openPersistence(cfg)
	if err != nil {
		return nil, err
	}

	svcs := &services{persistence: persistence}
	if closePersistence != nil {
		svcs.closers = append(svcs.closers, closePersistence)
	}

	svcs.hub = websocket.NewHub(logger)
	svcs.sessions = session.NewManager(catalog, session.Options{
		Persistence: persistence,
		Notifier:    svcs.hub,
		Tunings:     configManager,
		Logger:      logger,
	})
	svcs.closers = append(svcs.closers, svcs.sessions.Close)

	if err := svcs.sessions.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", "error", err)
	}

	svcs.game = service.NewGameService(svcs.sessions, configManager)
	return svcs, nil
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newHandler mounts the API at the root and the MCP endpoint at /mcp
func newHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// localURL turns a listen address into a URL the process can call itself on
func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)
	logger.Info("starting", "app", AppName, "version", Version, "store", cfg.Store)

	svcs, err := buildServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Error("failed to close services", "error", err)
		}
	}()

	apiServer := api.NewServer(svcs.game, svcs.hub, logger)
	baseURL := localURL(cfg.HTTPAddr)
	handler := newHandler(apiServer, mcp.NewClient(baseURL))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("http server listening",
			"addr", cfg.HTTPAddr,
			"api", baseURL+"/api",
			"websocket", strings.Replace(baseURL, "http", "ws", 1)+"/ws?session=<session_id>",
			"mcp", baseURL+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return maintainSessions(gctx, svcs.sessions, svcs.persistence, cfg.SessionTTL, logger)
	})

	if cfg.NgrokEnabled {
		g.Go(func() error {
			return runNgrok(gctx, cfg, handler, logger)
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// maintainSessions evicts idle sessions every cleanupInterval and, when a
// store is configured, drops in-memory sessions whose snapshot was deleted
// out from under the server.
func maintainSessions(ctx context.Context, sessions *session.Manager, persistence session.SessionPersistence, ttl time.Duration, logger *slog.Logger) error {
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	syncTicker := time.NewTicker(syncInterval)
	defer syncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-cleanup.C:
			if ttl <= 0 {
				continue
			}
			if removed := sessions.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", "count", removed)
			}
		case <-syncTicker.C:
			if pruned := pruneOrphans(sessions, persistence); pruned > 0 {
				logger.Info("pruned sessions whose snapshot was deleted", "count", pruned)
			}
		}
	}
}

// pruneOrphans removes sessions from memory when their snapshot no longer
// exists in the store
func pruneOrphans(sessions *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range sessions.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := sessions.DeleteFromMemory(sess.ID); err == nil {
			pruned++
		}
	}
	return pruned
}

// runNgrok serves the handler through an ngrok tunnel until ctx is done. A
// tunnel that fails to start is logged and does not stop the server.
func runNgrok(ctx context.Context, cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) error {
	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("using custom ngrok domain", "domain", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return nil
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"mcp", ngrokURL+"/mcp")

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// apiReachable reports whether a trivia API answers its health check at baseURL
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when it
// is reachable; otherwise it starts an internal HTTP API bound to a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries the MCP protocol
	logger := newLogger(os.Stderr, cfg.LogLevel)

	baseURL := cmd.String("api-url")
	logger.Info("checking for external API server", "url", baseURL)

	if apiReachable(ctx, baseURL) {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		svcs, err := buildServices(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hubCtx, stopHub := context.WithCancel(ctx)
		defer stopHub()
		go svcs.hub.Run(hubCtx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, svcs.hub, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
