package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/repository"
	"github.com/UnknownOlympus/tract/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	readTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tract lookup HTTP API",
		Long: `Starts the HTTP API with /v1/tract, /v1/lookups, /healthz and /metrics.
Lookups are journaled to PostgreSQL when postgres.host is configured.`,
		Args:    cobra.NoArgs,
		PreRunE: a.loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	var journal repository.Interface
	if a.cfg.Database.Enabled() {
		db := a.cfg.Database
		pool, err := repository.NewDatabase(ctx, db.Host, db.Port, db.User, db.Password, db.Name)
		if err != nil {
			return fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer pool.Close()

		repo := repository.NewRepository(pool, a.log)
		if err = repo.EnsureSchema(ctx); err != nil {
			return err
		}
		journal = repo

		a.log.InfoContext(ctx, "Lookup journal enabled", "host", db.Host, "db", db.Name)
	}

	svc, err := a.newService(appMetrics, journal)
	if err != nil {
		return err
	}

	// Two sequential upstream calls plus encoding must fit.
	writeTimeout := 2*a.cfg.RequestTimeout + readTimeout

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(a.cfg.Server.Port),
		Handler:      server.NewHandler(a.log, svc, journal, reg),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.log.InfoContext(gctx, "Starting HTTP server", "port", a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		a.log.InfoContext(context.Background(), "Shutdown signal received. Stopping server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	a.log.InfoContext(context.Background(), "Server stopped gracefully.")

	return nil
}
