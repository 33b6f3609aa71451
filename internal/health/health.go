// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package health implements the CLI health-check probe (catalog
// reachability, a no-op oracle call, and rubric directory readability)
// and an optional HTTP /healthz + /metrics server for environments that
// want continuous monitoring instead of the one-shot CLI check.
package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/kai-classifier/internal/catalog"
	"github.com/tomtom215/kai-classifier/internal/logging"
	"github.com/tomtom215/kai-classifier/internal/oracle"
)

// Checker runs the one-shot readiness probe.
type Checker struct {
	Catalog   catalog.Client
	Oracle    oracle.Client
	RubricDir string
}

// Report is the outcome of one Check call.
type Report struct {
	CatalogOK   bool
	CatalogErr  string
	OracleOK    bool
	OracleErr   string
	RubricDirOK bool
	RubricErr   string
}

// Healthy reports whether every probed dependency passed.
func (r Report) Healthy() bool {
	return r.CatalogOK && r.OracleOK && r.RubricDirOK
}

// Check probes the catalog, a no-op oracle call, and the rubric directory.
func (c *Checker) Check(ctx context.Context) Report {
	var r Report

	if _, err := c.Catalog.ListLabels(ctx); err != nil {
		r.CatalogErr = err.Error()
	} else {
		r.CatalogOK = true
	}

	if _, err := c.Oracle.Classify(ctx, oracle.Request{Category: "__health__"}); err != nil {
		r.OracleErr = err.Error()
	} else {
		r.OracleOK = true
	}

	if info, err := os.Stat(c.RubricDir); err != nil {
		r.RubricErr = err.Error()
	} else if !info.IsDir() {
		r.RubricErr = fmt.Sprintf("%s is not a directory", c.RubricDir)
	} else {
		r.RubricDirOK = true
	}

	return r
}

// Serve starts a minimal chi-routed HTTP server exposing /healthz and
// /metrics on addr. It blocks until ctx is cancelled.
func Serve(ctx context.Context, addr string, checker *Checker) error {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		report := checker.Check(req.Context())
		if !report.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, "catalog_ok=%t oracle_ok=%t rubric_dir_ok=%t\n", report.CatalogOK, report.OracleOK, report.RubricDirOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("health server shutdown error")
		}
	}()

	logging.Ctx(ctx).Info().Str("addr", addr).Msg("health server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
