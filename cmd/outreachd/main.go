package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/felixgeelhaar/outreach/internal/app"
	"github.com/felixgeelhaar/outreach/internal/config"
	"github.com/felixgeelhaar/outreach/internal/console"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	pidFileName = "outreachd.pid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Ensure ~/.outreach directory exists
	outreachDir, err := config.EnsureOutreachDir()
	if err != nil {
		return fmt.Errorf("ensure outreach dir: %w", err)
	}

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel, _ := config.ParseLogLevel(cfg.Console.LogLevel)
	if config.Debug() {
		logLevel = slog.LevelDebug
	}
	logFile, err := setupLogging(outreachDir, logLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logFile.Close()

	pidPath := filepath.Join(outreachDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	a, err := app.Open(cfg, outreachDir, slog.Default())
	if err != nil {
		return fmt.Errorf("open app: %w", err)
	}
	defer a.Close()

	a.Container.InitializeAuth()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Follow logins and logouts made by the CLI
	switch err := a.Watch(ctx); {
	case errors.Is(err, app.ErrWatchUnsupported):
		slog.Info("storage change notification unavailable; relying on per-request checks", "backend", cfg.Storage.Backend)
	case err != nil:
		return fmt.Errorf("watch storage: %w", err)
	}

	console.Version = Version
	server := console.NewServer(console.ServerConfig{
		Config:    cfg,
		Container: a.Container,
		Store:     a.Store,
		Client:    a.Client,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

func setupLogging(outreachDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(outreachDir, "logs", "outreachd.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	// JSON to the log file, text to stderr for foreground mode
	slog.SetDefault(slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		},
	}))

	return logFile, nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
