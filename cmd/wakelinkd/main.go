// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Command wakelinkd runs the blind relay: it loads configuration, opens
// the entity store, wires the relay engine behind both the HTTP and
// push-stream surfaces, starts the retention sweeper, and serves until
// an interrupt or termination signal arrives.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"

	"github.com/xmidt-org/wakelink/internal/authn"
	"github.com/xmidt-org/wakelink/internal/config"
	"github.com/xmidt-org/wakelink/internal/registry"
	"github.com/xmidt-org/wakelink/internal/relay"
	"github.com/xmidt-org/wakelink/internal/retention"
	"github.com/xmidt-org/wakelink/internal/store"
	"github.com/xmidt-org/wakelink/internal/transport/httpapi"
	"github.com/xmidt-org/wakelink/internal/transport/wsapi"
	"github.com/xmidt-org/wakelink/xhttp"
)

func main() {
	flags := pflag.NewFlagSet("wakelinkd", pflag.ExitOnError)
	flags.Parse(os.Args[1:])

	cfg, err := config.New(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %s\n", err)
		os.Exit(1)
	}

	logger := sallust.Default()
	if cfg.Debug {
		devLogger, _ := zap.NewDevelopment()
		logger = devLogger
	}
	defer logger.Sync() //nolint: errcheck

	if err := run(cfg, logger); err != nil {
		logger.Error("wakelinkd exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	st, err := store.Open(cfg.DatabaseFile, logger, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	reg := registry.New(logger)
	metricsRegistry := prometheus.NewRegistry()
	engine := relay.NewEngine(reg, st, relay.NewMetrics(metricsRegistry), logger)
	resolver := authn.NewResolver(st)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	sweeper := retention.New(st, cfg.RetentionWindow(), logger)
	go sweeper.Run(sweepCtx)

	httpSurface := &httpapi.Server{Engine: engine, Resolver: resolver, Logger: logger}
	wsSurface := &wsapi.Server{Engine: engine, Resolver: resolver, Logger: logger}

	root := mux.NewRouter()
	root.PathPrefix("/ws/").Handler(wsSurface.Router())
	root.PathPrefix("/api/").Handler(httpSurface.Router())
	root.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.CloudPort),
		Handler: root,
	}

	starter := xhttp.NewStarter(xhttp.StartOptions{Logger: logger}, httpServer)

	serveErrs := make(chan error, 1)
	go func() { serveErrs <- starter() }()

	logger.Info("wakelinkd listening", zap.Int("port", cfg.CloudPort))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-shutdown:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	return nil
}
