// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

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

	"github.com/spf13/pflag"

	"github.com/signet-project/signet/ingest"
	"github.com/signet-project/signet/lib/clock"
	"github.com/signet-project/signet/lib/process"
	"github.com/signet-project/signet/lib/version"
	"github.com/signet-project/signet/sqlitestore"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("signet-server", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	listen := flags.String("listen", "", "listen address (overrides config)")
	databasePath := flags.String("db", "", "SQLite database path (overrides config)")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println("signet-server", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *databasePath != "" {
		cfg.DatabasePath = *databasePath
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	backend, err := sqlitestore.Open(sqlitestore.Config{
		Path:     cfg.DatabasePath,
		PoolSize: cfg.PoolSize,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	pipeline, err := ingest.New(backend, clk, logger)
	if err != nil {
		return err
	}

	srv := &server{
		backend:  backend,
		pipeline: pipeline,
		clock:    clk,
		logger:   logger,
	}

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- httpServer.ListenAndServe()
	}()

	logger.Info("signet server running",
		"listen", cfg.Listen,
		"database", cfg.DatabasePath,
	)

	select {
	case err := <-serveDone:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}
