// Command sheetbridged serves the machine-facing interface to the
// shop-floor nesting database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sheetbridge/internal/adapters/httpapi"
	"sheetbridge/internal/batch"
	"sheetbridge/internal/feedback"
	"sheetbridge/internal/infra/db"
	"sheetbridge/internal/lifecycle"
	"sheetbridge/internal/listing"
	"sheetbridge/internal/metrics"
	"sheetbridge/internal/nest"
)

const defaultAddr = ":3080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logger, closeLog, err := buildLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, db.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = pool.Close() }()
	logger.Info("database connected")

	source, err := batch.Open(ctx)
	if err != nil {
		return fmt.Errorf("open batch source: %w", err)
	}

	recorder := metrics.New()
	cache := batch.NewCache(source, recorder)
	resolver := &nest.Resolver{DB: pool, Batches: cache, Log: logger}

	api := &httpapi.Handler{
		DB:      pool,
		Batches: cache,
		Nests:   resolver,
		Programs: &lifecycle.Handler{
			DB:               pool,
			Log:              logger,
			BestEffortRecord: true,
			Metrics:          recorder,
		},
		Listing:  &listing.Service{DB: pool},
		Feedback: &feedback.Relay{Exporter: &feedback.SQLExporter{DB: pool}},
		Log:      logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.Handle("/", httpapi.Instrument(recorder, api))

	addr := os.Getenv("SHEETBRIDGE_ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// buildLogger fans structured logs out to stdout and, unless disabled, the
// server log file.
func buildLogger() (*slog.Logger, func(), error) {
	sinks := []io.Writer{os.Stdout}
	closeLog := func() {}

	path, set := os.LookupEnv("SHEETBRIDGE_LOG")
	if !set {
		path = "server.log"
	}
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, file)
		closeLog = func() { _ = file.Close() }
	}
	handler := slog.NewJSONHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), closeLog, nil
}
