package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"tomgalvin.uk/sketchprint/internal/config"
	"tomgalvin.uk/sketchprint/internal/history"
	"tomgalvin.uk/sketchprint/internal/imagegen"
	"tomgalvin.uk/sketchprint/internal/server"
	"tomgalvin.uk/sketchprint/printer"
)

func newLogger(level slog.Level) *slog.Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := run(); err != nil {
		slog.Error("sketchprint stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.SlogLevel())
	slog.SetDefault(logger)

	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("Invalid device profiles:\n%w", err)
	}

	jobs, err := history.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer jobs.Close()

	scanner, err := printer.NewBluetoothScanner()
	if err != nil {
		return fmt.Errorf("Couldn't initialise Bluetooth:\n%w", err)
	}

	filter := printer.DiscoverFilter{
		ServiceUUIDs: cfg.Bluetooth.Services,
		Name:         cfg.Bluetooth.DeviceName,
	}
	session := printer.NewSession(scanner, registry, printer.NewTransport(cfg.Bluetooth.ChunkDelay), filter)
	session.OnPrint(jobs.Observe)
	defer session.Disconnect()

	images := imagegen.NewClient(cfg.ImageService.URL, cfg.ImageService.Style)
	srv := server.NewServer(logger.With("src", "server"), session, images, jobs, cfg.Bluetooth.ScanTimeout)

	mux := http.NewServeMux()
	mux.Handle("/api/", srv.Handler())
	mux.Handle("/", http.FileServer(http.Dir("resources/web")))

	httpServer := &http.Server{Addr: cfg.Listen, Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting server", "addr", cfg.Listen, "profiles", len(registry.Profiles()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("Error starting server:\n%w", err)
	}
	return nil
}
