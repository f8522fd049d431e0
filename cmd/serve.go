package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"lrc/internal/api"
	"lrc/internal/capture"
	"lrc/internal/config"
	"lrc/internal/control"
	"lrc/internal/input"
	"lrc/internal/logging"
	"lrc/internal/osutils"
	"lrc/internal/session"
	"lrc/internal/stream"
	"lrc/internal/tray"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the remote control server",
		Description: `Serve the MJPEG stream on /stream and the control websocket on /ws.

Settings come from defaults, --config (YAML), .env, LRC_* variables and
the flags below, later sources winning.

Examples:
  lrc serve --port 8010 --fps 15
  LRC_PASSWORD=hunter2 lrc serve --tray`,
		Flags:  serveFlags(),
		Action: runServe,
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Bind address",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Listen port",
		},
		&cli.IntFlag{
			Name:  "fps",
			Usage: "Target frames per second per viewer",
		},
		&cli.IntFlag{
			Name:  "quality",
			Usage: "JPEG quality 0-100",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Development logging and gin debug mode",
		},
		&cli.BoolFlag{
			Name:  "tray",
			Usage: "Show a system tray icon",
		},
		&cli.BoolFlag{
			Name:  "firewall",
			Usage: "Ensure an inbound firewall rule for the port (Windows)",
		},
	}
}

// loadConfig applies explicitly set flags on top of config.Load.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Int("fps")
	}
	if c.IsSet("quality") {
		cfg.JPEGQuality = c.Int("quality")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting LAN Remote Control",
		zap.String("version", Version),
		zap.String("addr", cfg.Addr()),
		zap.Int("fps", cfg.FPS),
		zap.Int("quality", cfg.JPEGQuality))
	if cfg.UsesDefaultPassword() {
		logger.Warn("Using the default password; set LRC_PASSWORD before exposing this server")
	}

	screen, err := capture.NewPrimaryScreen()
	if err != nil {
		// Keep serving the control channel; every frame will be dropped
		logger.Error("Screen capture unavailable", zap.Error(err))
		screen = capture.Unavailable(err)
	}
	source := capture.NewSource(screen, cfg.JPEGQuality)
	streamer := stream.New(source, cfg.Password, cfg.FPS, logger)

	injector := input.NewInjector()
	if w, h, err := injector.ScreenSize(); err != nil {
		logger.Warn("Input injection unavailable", zap.Error(err))
	} else {
		logger.Info("Input injection ready", zap.Int("width", w), zap.Int("height", h))
	}

	authority := session.NewAuthority(cfg.Password, logger)
	dispatcher := control.NewDispatcher(authority, injector, logger)
	server := api.NewServer(cfg, streamer, authority, dispatcher, logger)

	if c.Bool("firewall") {
		if err := osutils.EnsureFirewallRule(cfg.Port, logger); err != nil {
			logger.Warn("Failed to ensure firewall rule", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.Bool("tray") {
		return server.Run(ctx)
	}
	return runWithTray(ctx, stop, server, cfg, logger)
}

// runWithTray keeps the tray on the calling goroutine, which systray
// requires, and the server on another. Quit from the tray or a signal
// stops both.
func runWithTray(ctx context.Context, stop context.CancelFunc, server *api.Server, cfg *config.Config, logger *zap.Logger) error {
	t := tray.New("LRC", "LAN Remote Control on "+cfg.Addr())
	status := t.AddMenuItem("Starting...", nil)
	t.AddSeparator()
	t.AddMenuItem("Open in browser", func() {
		if err := openBrowser(fmt.Sprintf("http://127.0.0.1:%d/", cfg.Port)); err != nil {
			logger.Warn("Failed to open browser", zap.Error(err))
		}
	})
	t.AddMenuItem("Quit", stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
		t.Stop()
	}()
	go t.Refresh(ctx, status, 2*time.Second, func() string {
		st := server.Status()
		return tray.StatusText(st.Stream.Viewers, st.Controllers.Live, st.Controllers.Authorized)
	})

	t.Run()
	stop()
	return <-errCh
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
