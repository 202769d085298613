/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/airtime/internal/config"
	"github.com/friendsincode/airtime/internal/logbuffer"
	"github.com/friendsincode/airtime/internal/logging"
	"github.com/friendsincode/airtime/internal/server"
	"github.com/friendsincode/airtime/internal/telemetry"
	"github.com/friendsincode/airtime/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
	logBuf = logbuffer.New(logbuffer.DefaultCapacity)
)

var rootCmd = &cobra.Command{
	Use:           "airtime",
	Short:         "Airtime - automated radio station advertising and music requests",
	Long:          "Airtime books ads into show slots, airs them on schedule and works through listener music requests.",
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Airtime server",
	Long:  "Start the HTTP API, show timer and music request queue",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.SetupWithBuffer(cfg.Environment, logBuf)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().
		Str("version", version.Get().String()).
		Str("persistence", string(cfg.Persistence)).
		Str("speech", cfg.SpeechBackend).
		Str("generator", cfg.GeneratorBackend).
		Msg("Airtime starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "airtime",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logger, server.WithLogBuffer(logBuf))
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	listeners := []*http.Server{srv.HTTPServer()}
	if ms := srv.MetricsServer(); ms != nil {
		listeners = append(listeners, ms)
	}

	serveErr := make(chan error, len(listeners))
	for _, hs := range listeners {
		go func(hs *http.Server) {
			logger.Info().Str("addr", hs.Addr).Msg("HTTP server listening")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("listen on %s: %w", hs.Addr, err)
			}
		}(hs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.Error().Err(runErr).Msg("http server error")
	}

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, hs := range listeners {
		if err := hs.Shutdown(timeoutCtx); err != nil {
			logger.Error().Err(err).Str("addr", hs.Addr).Msg("graceful shutdown failed")
		}
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("Airtime stopped")
	return runErr
}
