// Command chess-rooms starts the chess room server.
//
// It supports two modes:
//  1. default: runs the HTTP server exposing the REST API, the WebSocket endpoint and an /mcp endpoint
//  2. "mcp": runs an MCP stdio server against a running API, starting an internal one if none answers
//
// Flags (each also readable from the environment) control host/port, presets,
// snapshots, the optional NATS event tap, debug logging and ngrok tunneling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/chess-rooms/api"
	"github.com/wricardo/chess-rooms/game/broadcast"
	"github.com/wricardo/chess-rooms/game/config"
	"github.com/wricardo/chess-rooms/game/engine"
	"github.com/wricardo/chess-rooms/game/registry"
	"github.com/wricardo/chess-rooms/game/service"
	"github.com/wricardo/chess-rooms/game/session"
	"github.com/wricardo/chess-rooms/transport/mcp"
	"github.com/wricardo/chess-rooms/transport/natsbus"
	"github.com/wricardo/chess-rooms/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chess Rooms Server"
)

const (
	defaultConfigDir   = "configs"
	snapshotMaxAge     = 24 * time.Hour
	snapshotPruneEvery = time.Hour
)

// options holds the resolved command line and environment settings.
type options struct {
	host          string
	port          int
	configDir     string
	startPosition string
	snapshotDir   string
	natsURL       string
	natsPrefix    string
	debug         bool
	ngrok         bool
	ngrokAuth     string
	ngrokDomain   string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", envErr)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "chess-rooms",
		Usage:   "real-time chess rooms over WebSocket",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: defaultConfigDir, Usage: "directory containing start-position presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "start-position", Value: config.StandardPreset, Usage: "preset new rooms start from", Sources: cli.EnvVars("START_POSITION")},
			&cli.StringFlag{Name: "snapshot-dir", Usage: "directory for live-room snapshots (disabled when empty)", Sources: cli.EnvVars("SNAPSHOT_DIR")},
			&cli.StringFlag{Name: "nats-url", Usage: "publish room events to this NATS server", Sources: cli.EnvVars("NATS_URL")},
			&cli.StringFlag{Name: "nats-prefix", Value: natsbus.DefaultPrefix, Usage: "NATS subject prefix", Sources: cli.EnvVars("NATS_PREFIX")},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := optionsFrom(cmd)
			logger, err := newLogger(opts.debug)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runHTTPServer(ctx, opts, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "mcp",
				Usage: "serve the MCP inspector over stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "API to inspect (defaults to http://<host>:<port>)", Sources: cli.EnvVars("API_URL")},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					opts := optionsFrom(cmd)
					// stdout is the MCP channel
					logger, err := newLogger(opts.debug)
					if err != nil {
						return err
					}
					defer logger.Sync()
					return runStdioMCP(ctx, opts, cmd.String("api-url"), logger)
				},
			},
		},
	}
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:          cmd.String("host"),
		port:          cmd.Int("port"),
		configDir:     cmd.String("config-dir"),
		startPosition: cmd.String("start-position"),
		snapshotDir:   cmd.String("snapshot-dir"),
		natsURL:       cmd.String("nats-url"),
		natsPrefix:    cmd.String("nats-prefix"),
		debug:         cmd.Bool("debug"),
		ngrok:         cmd.Bool("ngrok"),
		ngrokAuth:     cmd.String("ngrok-auth"),
		ngrokDomain:   cmd.String("ngrok-domain"),
	}
}

// newLogger builds a production logger, or a development one with debug on.
func newLogger(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("chess-rooms"), nil
}

// app is the wired server: one session store, registry, hub and coordinator.
type app struct {
	logger      *zap.Logger
	configs     *config.Manager
	sessions    *session.Manager
	hub         *websocket.Hub
	coordinator *broadcast.Coordinator
	service     service.RoomService
	publisher   *natsbus.Publisher
}

// newApp wires every component. It does not start any goroutine.
func newApp(opts options, logger *zap.Logger) (*app, error) {
	configDir := opts.configDir
	if configDir == defaultConfigDir {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			configDir = ""
		}
	}
	configs, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	if err := configs.SetDefault(opts.startPosition); err != nil {
		return nil, fmt.Errorf("failed to load start position %q: %w", opts.startPosition, err)
	}
	preset := configs.GetDefault()
	rules, err := engine.NewChessRulesFrom(preset.FEN)
	if err != nil {
		return nil, fmt.Errorf("invalid start position %q: %w", opts.startPosition, err)
	}

	var sessions *session.Manager
	if opts.snapshotDir != "" {
		persistence, err := session.NewFilePersistence(opts.snapshotDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot store: %w", err)
		}
		sessions = session.NewManagerWithPersistence(rules, persistence, logger)

		stored, err := sessions.StoredRooms()
		if err != nil {
			return nil, err
		}
		logger.Info("snapshot store ready",
			zap.String("dir", opts.snapshotDir),
			zap.Int("stored_games", len(stored)),
			zap.Strings("rooms", stored),
		)
	} else {
		sessions = session.NewManager(rules, logger)
	}

	reg := registry.New(sessions)
	hub := websocket.NewHub(logger)
	coordinator := broadcast.NewCoordinator(hub, reg, logger)
	svc := service.NewRoomService(sessions, reg, coordinator, rules, configs, logger)
	hub.SetHandler(api.NewSocketHandler(svc, logger))

	a := &app{
		logger:      logger,
		configs:     configs,
		sessions:    sessions,
		hub:         hub,
		coordinator: coordinator,
		service:     svc,
	}

	if opts.natsURL != "" {
		nc, err := natsbus.Connect(opts.natsURL, logger)
		if err != nil {
			return nil, err
		}
		a.publisher = natsbus.NewPublisher(nc, opts.natsPrefix)
		coordinator.SetTap(a.publisher)
		logger.Info("publishing room events to nats", zap.String("url", opts.natsURL), zap.String("prefix", opts.natsPrefix))
	}

	logger.Info("start position",
		zap.String("preset", opts.startPosition),
		zap.String("fen", preset.FEN),
		zap.Bool("snapshots", opts.snapshotDir != ""),
	)
	return a, nil
}

// handler mounts the API server at root and the MCP endpoint at /mcp.
func (a *app) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(a.service, a.hub, a.logger)
	mcpClient := mcp.NewClient(baseURL)

	router := apiServer.Router()
	router.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}).Methods(http.MethodPost)
	return apiServer
}

// shutdown keeps snapshots, closes every websocket and drains the tap.
func (a *app) shutdown() {
	a.sessions.Close()
	a.hub.Close()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("nats drain failed", zap.Error(err))
		}
	}
}

// pruneSnapshots removes stale snapshot files until ctx is done.
func (a *app) pruneSnapshots(ctx context.Context) {
	ticker := time.NewTicker(snapshotPruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.sessions.PruneSnapshots(snapshotMaxAge); removed > 0 {
				a.logger.Info("pruned stale snapshots", zap.Int("removed", removed))
			}
		}
	}
}

// runHTTPServer serves REST, WebSocket and /mcp until SIGINT or SIGTERM.
// If ngrok is enabled it also serves through a public tunnel.
func runHTTPServer(parent context.Context, opts options, logger *zap.Logger) error {
	a, err := newApp(opts, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := opts.addr()
	mainRouter := a.handler(fmt.Sprintf("http://%s", addr))

	// WriteTimeout stays zero: websocket writes manage their own deadlines.
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.pruneSnapshots(ctx)
	}()

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?name=<name>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, mainRouter, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		stop()
		wg.Wait()
		a.shutdown()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, opts options, handler http.Handler, logger *zap.Logger) {
	if opts.ngrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("websocket", ngrokURL+"/ws?name=<name>"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP serves the MCP inspector over stdio. It uses apiURL, or the
// server at the configured address, and otherwise starts an internal API on
// a random loopback port.
func runStdioMCP(ctx context.Context, opts options, apiURL string, logger *zap.Logger) error {
	baseURL := apiURL
	if baseURL == "" {
		baseURL = "http://" + opts.addr()
	}

	if !apiAvailable(baseURL) {
		if apiURL != "" {
			return fmt.Errorf("no API server answering at %s", apiURL)
		}
		logger.Info("no API server found, starting internal HTTP server", zap.String("checked", baseURL))

		a, err := newApp(opts, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		internal := &http.Server{Handler: a.handler(baseURL)}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("internal HTTP server error", zap.Error(err))
			}
		}()
		defer func() {
			a.shutdown()
			internal.Close()
		}()
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a chess rooms API answers the health check at baseURL.
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
