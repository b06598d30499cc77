// Command tictactoe-relay starts the two-player tic-tac-toe relay server.
//
// Commands:
//   - "serve" (default) – runs the HTTP server exposing the WebSocket relay, the REST room API, and an /mcp endpoint
//   - "mcp" – runs an MCP stdio server against a running relay, or an internal one if none answers
//   - "validate" – checks the layered configuration without starting anything
//   - "version" – prints version information
//
// Configuration comes from defaults, an optional YAML file, TICTACTOE_* environment
// variables and finally explicit flags. An optional ngrok tunnel exposes the
// server publicly during development.
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
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/tictactoe-relay/api"
	"github.com/wricardo/tictactoe-relay/config"
	"github.com/wricardo/tictactoe-relay/game/room"
	"github.com/wricardo/tictactoe-relay/game/service"
	"github.com/wricardo/tictactoe-relay/logging"
	"github.com/wricardo/tictactoe-relay/transport/mcp"
	"github.com/wricardo/tictactoe-relay/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tic-Tac-Toe Relay Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. "serve" is also the root action.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "tictactoe-relay",
		Usage:   AppName,
		Version: Version,
		Flags:   globalFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server with WebSocket relay, REST API and MCP endpoint",
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "Relay REST API to proxy; an internal server starts if it does not answer",
						Value: "http://localhost:3000",
					},
				},
				Action: mcpAction,
			},
			{
				Name:   "validate",
				Usage:  "Validate the layered configuration and print the result",
				Action: validateAction,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML config file"},
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
		&cli.StringFlag{Name: "static-dir", Usage: "Directory served at / (empty disables)"},
		&cli.DurationFlag{Name: "end-game-delay", Usage: "Delay between the final move and endGame"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
		&cli.StringFlag{Name: "log-format", Usage: "Log format: json or console"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
	}
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	v := config.New()
	if path := cmd.String("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	if cmd.IsSet("host") {
		v.Set("server.host", cmd.String("host"))
	}
	if cmd.IsSet("port") {
		v.Set("server.port", int(cmd.Int("port")))
	}
	if cmd.IsSet("static-dir") {
		v.Set("server.static_dir", cmd.String("static-dir"))
	}
	if cmd.IsSet("end-game-delay") {
		v.Set("game.end_game_delay", cmd.Duration("end-game-delay"))
	}
	if cmd.IsSet("log-level") {
		v.Set("logging.level", cmd.String("log-level"))
	}
	if cmd.Bool("debug") {
		v.Set("logging.level", "debug")
	}
	if cmd.IsSet("log-format") {
		v.Set("logging.format", cmd.String("log-format"))
	}
	if cmd.IsSet("ngrok") {
		v.Set("ngrok.enabled", cmd.Bool("ngrok"))
	}
	if cmd.IsSet("ngrok-auth") {
		v.Set("ngrok.authtoken", cmd.String("ngrok-auth"))
	}
	if cmd.IsSet("ngrok-domain") {
		v.Set("ngrok.domain", cmd.String("ngrok-domain"))
	}

	return config.LoadFromViper(v)
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	fmt.Fprintln(w, "✓ configuration valid")
	fmt.Fprintf(w, "  listen:         %s\n", cfg.Server.Addr())
	fmt.Fprintf(w, "  static dir:     %q\n", cfg.Server.StaticDir)
	fmt.Fprintf(w, "  end game delay: %s\n", cfg.Game.EndGameDelay)
	fmt.Fprintf(w, "  logging:        %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Fprintf(w, "  ngrok:          %t\n", cfg.Ngrok.Enabled)
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runHTTPServer(ctx, cfg, logger)
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries MCP frames
	logger, err := logging.NewStderr(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return runStdioMCP(ctx, cfg, cmd.String("api-url"), logger)
}

// relay wires the room registry, game service, WebSocket hub and HTTP surface.
type relay struct {
	hub     *websocket.Hub
	service service.GameService
	api     *api.Server
}

func newRelay(cfg config.Config, logger *zap.Logger) *relay {
	hub := websocket.NewHub(logger.Named("hub"))
	gameService := service.NewGameService(
		room.NewRegistry(),
		hub,
		service.WithLogger(logger.Named("game")),
		service.WithEndGameDelay(cfg.Game.EndGameDelay),
	)
	return &relay{
		hub:     hub,
		service: gameService,
		api:     api.NewServer(gameService, hub, cfg.Server.StaticDir, logger.Named("http")),
	}
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST.
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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

// loopbackURL returns a base URL the process can use to reach its own listener.
func loopbackURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// runHTTPServer serves the relay until ctx is cancelled, then shuts down
// gracefully. If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	app := newRelay(cfg, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go app.hub.Run(hubCtx)

	addr := cfg.Server.Addr()
	mcpClient := mcp.NewClient(loopbackURL(addr))
	app.api.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer()))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      app.api,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
			zap.String("rest", fmt.Sprintf("http://%s/api/rooms", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	tunnelCtx, stopTunnel := context.WithCancel(ctx)
	defer stopTunnel()
	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(tunnelCtx, cfg.Ngrok, app.api, logger.Named("ngrok"))
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-serveErr:
	}
	stopTunnel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	// hijacked WebSocket connections are not tracked by Shutdown
	stopHub()

	wg.Wait()
	logger.Info("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends.
func runNgrokTunnel(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, logger *zap.Logger) {
	authToken := cfg.AuthToken
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN") // Also support underscore version
	}
	if authToken == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info("Starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logger.Info("Using custom ngrok domain", zap.String("domain", cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Warn("Failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	logger.Info("Ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("websocket", strings.Replace(ngrokURL, "https://", "wss://", 1)+"/ws"),
		zap.String("mcp", ngrokURL+"/mcp"),
	)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("Failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("Ngrok server error", zap.Error(err))
	}
	logger.Info("Ngrok tunnel closed")
}

// pingRelay reports whether a relay answers /healthz at baseURL.
func pingRelay(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", strings.TrimRight(baseURL, "/")+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalRelay serves a relay on a random loopback port and returns its
// base URL and a stop function.
func startInternalRelay(cfg config.Config, logger *zap.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	app := newRelay(cfg, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go app.hub.Run(hubCtx)

	httpServer := &http.Server{Handler: app.api}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Internal HTTP server error", zap.Error(err))
		}
	}()

	stop := func() {
		httpServer.Close()
		stopHub()
	}
	return "http://" + listener.Addr().String(), stop, nil
}

// runStdioMCP runs an MCP stdio server. It reuses the relay at apiURL when it
// answers; otherwise it starts an internal relay on a loopback port.
func runStdioMCP(ctx context.Context, cfg config.Config, apiURL string, logger *zap.Logger) error {
	baseURL := apiURL
	if pingRelay(ctx, apiURL) {
		logger.Info("External relay found, using it for MCP", zap.String("url", apiURL))
	} else {
		logger.Info("No external relay found, starting internal HTTP server", zap.String("tried", apiURL))

		internalURL, stop, err := startInternalRelay(cfg, logger)
		if err != nil {
			return err
		}
		defer stop()
		baseURL = internalURL
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
