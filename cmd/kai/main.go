// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package main is the entry point for kai-classifier.
//
// kai-classifier is a scheduled batch job that reconciles AI-derived
// category labels onto an external movie catalog. On each run it:
//
//  1. Configuration: load settings from environment variables and an
//     optional config file (Koanf v2)
//  2. Rubric extraction: read KOMETA-AI comment blocks embedded in host
//     YAML files under RUBRIC_DIR
//  3. Planning: decide which movies can reuse a cached decision and which
//     must be reissued to the oracle, by content fingerprint
//  4. Classification: batch reask movies against the oracle, with a
//     single-item refinement pass for near-threshold verdicts
//  5. Reconciliation: apply add/remove/no-op label changes to the catalog
//  6. Reporting: email a run summary, subject to the notification policy
//
// # Signal Handling
//
// The process handles SIGINT and SIGTERM by cancelling the run context.
// The batch whose oracle call is in flight still finishes and is saved
// (except in a dry run); no further batch starts, and the process exits
// once the run returns.
//
// # Exit Codes
//
//	0  normal exit
//	1  fatal configuration error (exits before any mutation)
//	2  health-check failure
//	3  unrecoverable runtime error
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/kai-classifier/internal/catalog"
	"github.com/tomtom215/kai-classifier/internal/clock"
	"github.com/tomtom215/kai-classifier/internal/config"
	"github.com/tomtom215/kai-classifier/internal/decisionstore"
	"github.com/tomtom215/kai-classifier/internal/health"
	"github.com/tomtom215/kai-classifier/internal/logging"
	"github.com/tomtom215/kai-classifier/internal/oracle"
	"github.com/tomtom215/kai-classifier/internal/orchestrator"
	"github.com/tomtom215/kai-classifier/internal/planner"
	"github.com/tomtom215/kai-classifier/internal/reporter"
	"github.com/tomtom215/kai-classifier/internal/rubric"
	"github.com/tomtom215/kai-classifier/internal/scheduler"
	"github.com/tomtom215/kai-classifier/internal/smtp"
)

// claudeSonnetPricing is the per-million-token rate used to estimate run
// cost. It is not exposed as configuration because spec.md names no env
// var for it; update this constant when the model's published price
// changes.
var claudeSonnetPricing = oracle.Pricing{InputPerMillion: 3.00, OutputPerMillion: 15.00}

type exitCoder struct{ code int }

func (e exitCoder) Error() string { return fmt.Sprintf("exit %d", e.code) }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if ec, ok := err.(exitCoder); ok {
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}

type rootOptions struct {
	dryRun            bool
	runNow            bool
	collection        string
	batchSize         int
	forceRefresh      bool
	healthCheck       bool
	dumpConfig        bool
	dumpState         bool
	resetState        bool
	optimizeBatchSize string
	healthAddr        string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "kai-classifier",
		Short:         "Reconciles AI-derived category labels onto a movie catalog",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Version = decisionstore.AppVersion

	f := cmd.Flags()
	f.SortFlags = false
	f.BoolVar(&opts.runNow, "run-now", false, "Run one classification pass immediately, then exit (ignores the schedule).")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Plan and classify as usual, but never mutate catalog labels.")
	f.StringVar(&opts.collection, "collection", "", "Restrict the run to a single rubric category, matched case-insensitively.")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Override BATCH_SIZE for this invocation (0 uses the configured value).")
	f.BoolVar(&opts.forceRefresh, "force-refresh", false, "Ignore cached decisions and reissue every candidate to the oracle.")
	f.BoolVar(&opts.healthCheck, "health-check", false, "Probe the catalog, oracle, and rubric directory, print the result, and exit.")
	f.BoolVar(&opts.dumpConfig, "dump-config", false, "Print the fully-resolved configuration and exit.")
	f.BoolVar(&opts.dumpState, "dump-state", false, "Print the decision store's contents and exit.")
	f.BoolVar(&opts.resetState, "reset-state", false, "Discard all cached decisions and exit.")
	f.StringVar(&opts.optimizeBatchSize, "optimize-batch-size", "", "Comma-separated batch sizes to sweep against one rubric category, e.g. 50,100,200.")
	f.StringVar(&opts.healthAddr, "health-addr", "", "If set, serve /healthz and /metrics on this address instead of exiting after the one-shot check.")

	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitCoder{1}
	}

	logging.Init(logging.Config{
		Level:  levelFor(cfg.Logging.Debug),
		Format: "json",
	})
	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.dumpConfig {
		return dumpConfig(cfg)
	}

	store, err := decisionstore.Open(cfg.StateFile, clock.Real{})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to open decision store")
		return exitCoder{1}
	}

	lock, err := decisionstore.AcquireLock(cfg.StateFile + ".lock")
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to acquire state lock")
		return exitCoder{1}
	}
	defer lock.Release()

	if opts.dumpState {
		return dumpState(store)
	}
	if opts.resetState {
		store.Reset()
		if err := store.Save(); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to save reset state")
			return exitCoder{1}
		}
		fmt.Println("decision store reset")
		return nil
	}

	catalogClient := catalog.NewResilientClient(catalog.NewRadarrClient(cfg.Radarr.URL, cfg.Radarr.APIKey), clock.Real{})
	oracleClient := oracle.NewResilientClient(oracle.NewAnthropicClient(cfg.Claude.APIKey, cfg.Claude.Model, claudeSonnetPricing), clock.Real{})

	if cfg.KometaFixTags {
		if err := fixTaglists(ctx, cfg.RubricDir); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("kometa tag fix-up failed")
		}
	}

	if opts.healthCheck || opts.healthAddr != "" {
		return runHealth(ctx, catalogClient, oracleClient, cfg, opts)
	}

	if opts.optimizeBatchSize != "" {
		return runOptimizeBatchSize(ctx, oracleClient, cfg, opts)
	}

	orch := &orchestrator.Orchestrator{
		Catalog: catalogClient,
		Oracle:  oracleClient,
		Store:   store,
		Clock:   clock.Real{},
	}

	batchSize := cfg.BatchSize
	if opts.batchSize > 0 {
		batchSize = opts.batchSize
	}
	runOpts := orchestrator.Options{
		RubricDir:    cfg.RubricDir,
		DryRun:       opts.dryRun,
		BatchSize:    batchSize,
		ForceRefresh: opts.forceRefresh,
		OnlyCategory: opts.collection,
	}

	sender := smtp.New(smtp.Config{
		Host:     cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		UseTLS:   cfg.SMTP.UseTLS,
		UseSSL:   cfg.SMTP.UseSSL,
	})
	policy := reporter.Policy{
		NotifyOnNoChanges:  cfg.Notification.OnNoChanges,
		NotifyOnErrorsOnly: cfg.Notification.OnErrorsOnly,
	}

	deliver := func(ctx context.Context, summary orchestrator.RunSummary, nextRunAt time.Time) {
		if len(cfg.Notification.Recipients) == 0 {
			return
		}
		delivery := reporter.Delivery{
			From:      cfg.Notification.From,
			To:        cfg.Notification.Recipients,
			ReplyTo:   cfg.Notification.ReplyTo,
			NextRunAt: nextRunAt,
		}
		if err := reporter.Deliver(ctx, sender, policy, delivery, summary); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to deliver run report")
		}
	}

	if opts.runNow {
		summary, err := orch.Run(ctx, runOpts)
		deliver(ctx, summary, time.Time{})
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("run failed")
			return exitCoder{3}
		}
		return nil
	}

	return runScheduled(ctx, orch, runOpts, cfg, deliver)
}

func runScheduled(ctx context.Context, orch *orchestrator.Orchestrator, runOpts orchestrator.Options, cfg *config.Config, deliver func(context.Context, orchestrator.RunSummary, time.Time)) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval, err := scheduler.ParseInterval(cfg.Schedule.Interval)
	if err != nil {
		return exitCoder{1}
	}
	start, err := scheduler.ParseWallClock(cfg.Schedule.StartTime)
	if err != nil {
		return exitCoder{1}
	}
	loc, err := time.LoadLocation(cfg.Schedule.TZ)
	if err != nil {
		return exitCoder{1}
	}

	var sched *scheduler.Scheduler
	sched = scheduler.New(scheduler.Config{Interval: interval, Start: start, Location: loc}, clock.Real{}, func(ctx context.Context) {
		summary, err := orch.Run(ctx, runOpts)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("scheduled run failed")
		}
		deliver(ctx, summary, sched.NextActivation())
	})

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}

func dumpConfig(cfg *config.Config) error {
	fmt.Printf("radarr.url: %s\n", cfg.Radarr.URL)
	fmt.Printf("claude.model: %s\n", cfg.Claude.Model)
	fmt.Printf("logging.debug: %t\n", cfg.Logging.Debug)
	fmt.Printf("smtp.server: %s\n", cfg.SMTP.Server)
	fmt.Printf("smtp.port: %d\n", cfg.SMTP.Port)
	fmt.Printf("notification.recipients: %s\n", strings.Join(cfg.Notification.Recipients, ","))
	fmt.Printf("notification.on_no_changes: %t\n", cfg.Notification.OnNoChanges)
	fmt.Printf("notification.on_errors_only: %t\n", cfg.Notification.OnErrorsOnly)
	fmt.Printf("schedule.interval: %s\n", cfg.Schedule.Interval)
	fmt.Printf("schedule.start_time: %s\n", cfg.Schedule.StartTime)
	fmt.Printf("schedule.tz: %s\n", cfg.Schedule.TZ)
	fmt.Printf("batch_size: %d\n", cfg.BatchSize)
	fmt.Printf("kometa_fix_tags: %t\n", cfg.KometaFixTags)
	fmt.Printf("rubric_dir: %s\n", cfg.RubricDir)
	fmt.Printf("state_file: %s\n", cfg.StateFile)
	return nil
}

func dumpState(store *decisionstore.Store) error {
	dump := store.Dump()
	for movieID, byCategory := range dump {
		if fp, ok := store.GetFingerprint(movieID); ok {
			fmt.Printf("movie=%d fingerprint=%s\n", movieID, fp)
		}
		for category, d := range byCategory {
			fmt.Printf("movie=%d category=%s include=%t confidence=%.3f fingerprint=%s decided_at=%s\n",
				movieID, category, d.Include, d.Confidence, d.Fingerprint, d.DecidedAt.Format(time.RFC3339))
		}
	}
	return nil
}

func runHealth(ctx context.Context, catalogClient catalog.Client, oracleClient oracle.Client, cfg *config.Config, opts *rootOptions) error {
	checker := &health.Checker{Catalog: catalogClient, Oracle: oracleClient, RubricDir: cfg.RubricDir}

	if opts.healthAddr != "" {
		return health.Serve(ctx, opts.healthAddr, checker)
	}

	report := checker.Check(ctx)
	fmt.Printf("catalog_ok=%t oracle_ok=%t rubric_dir_ok=%t\n", report.CatalogOK, report.OracleOK, report.RubricDirOK)
	if !report.Healthy() {
		if report.CatalogErr != "" {
			fmt.Printf("catalog error: %s\n", report.CatalogErr)
		}
		if report.OracleErr != "" {
			fmt.Printf("oracle error: %s\n", report.OracleErr)
		}
		if report.RubricErr != "" {
			fmt.Printf("rubric dir error: %s\n", report.RubricErr)
		}
		return exitCoder{2}
	}
	return nil
}

func runOptimizeBatchSize(ctx context.Context, oracleClient oracle.Client, cfg *config.Config, opts *rootOptions) error {
	if opts.collection == "" {
		return fmt.Errorf("--optimize-batch-size requires --collection to pick a sample rubric")
	}

	rubrics, _, err := rubric.Extract(filepath.Join(cfg.RubricDir, opts.collection+".yaml"))
	if err != nil || len(rubrics) == 0 {
		return fmt.Errorf("could not locate rubric %q under %s", opts.collection, cfg.RubricDir)
	}
	r := rubrics[0]

	sizes := parseSizes(opts.optimizeBatchSize)
	if len(sizes) == 0 {
		return fmt.Errorf("--optimize-batch-size needs at least one positive integer")
	}

	req := oracle.Request{
		Category:            r.Name,
		Prompt:              r.Prompt,
		ConfidenceThreshold: r.ConfidenceThreshold,
		IncludeExamples:     r.ExampleIncludes,
		ExcludeExamples:     r.ExampleExcludes,
	}
	for i := 0; i < sizes[len(sizes)-1]; i++ {
		req.Movies = append(req.Movies, oracle.MovieInput{ID: i, Title: fmt.Sprintf("sample-%d", i)})
	}

	results, err := planner.Sweep(ctx, oracleClient, req, sizes)
	if err != nil {
		return err
	}
	planner.RenderSweep(os.Stdout, results)
	return nil
}

func parseSizes(s string) []int {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(part, "%d", &n); err == nil && n > 0 {
			sizes = append(sizes, n)
		}
	}
	return sizes
}

func fixTaglists(ctx context.Context, rubricDir string) error {
	entries, err := os.ReadDir(rubricDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isRubricHostFile(e.Name()) {
			continue
		}
		path := filepath.Join(rubricDir, e.Name())
		found, _, err := rubric.Extract(path)
		if err != nil {
			continue
		}
		for _, r := range found {
			want := rubric.ExpectedLabel(r.Name)
			if r.ExpectedLabel == want {
				continue
			}
			changed, err := rubric.FixTaglist(path, r.Name, want)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("file", path).Msg("failed to fix taglist")
				continue
			}
			if changed {
				logging.Ctx(ctx).Info().Str("category", r.Name).Str("label", want).Msg("corrected radarr_taglist")
			}
		}
	}
	return nil
}

// isRubricHostFile reports whether name is a rubric host file: a
// .yml/.yaml file not starting with "." or "_".
func isRubricHostFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

func levelFor(debug bool) string {
	if debug {
		return "debug"
	}
	return "info"
}
