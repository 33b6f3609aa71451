// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package orchestrator drives one end-to-end classification run: extract
// rubrics, plan batches, call the oracle, update the decision store,
// reconcile catalog labels, and produce a summary. A run is single
// threaded and cooperative - rubrics are processed in sequence, and
// batches within a rubric are processed in sequence - so that checkpoints
// at batch boundaries are always consistent with what has actually been
// saved.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/kai-classifier/internal/catalog"
	"github.com/tomtom215/kai-classifier/internal/clock"
	"github.com/tomtom215/kai-classifier/internal/decisionstore"
	"github.com/tomtom215/kai-classifier/internal/fingerprint"
	"github.com/tomtom215/kai-classifier/internal/logging"
	"github.com/tomtom215/kai-classifier/internal/metrics"
	"github.com/tomtom215/kai-classifier/internal/oracle"
	"github.com/tomtom215/kai-classifier/internal/planner"
	"github.com/tomtom215/kai-classifier/internal/reconcile"
	"github.com/tomtom215/kai-classifier/internal/rubric"
)

// CategorySummary reports what happened to one rubric category in a run.
type CategorySummary struct {
	Category     string
	Added        []string // movie titles
	Removed      []string // movie titles
	Reused       int
	Classified   int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// RunSummary is everything a run produced, handed to the reporter.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Categories []CategorySummary
	Diagnostics []rubric.Diagnostic
	Errors     []string
	TotalCostUSD float64
}

// Options configures one Run.
type Options struct {
	RubricDir    string
	DryRun       bool
	BatchSize    int
	ForceRefresh bool
	// OnlyCategory restricts the run to a single rubric name, matched
	// case-insensitively. Empty means every enabled rubric.
	OnlyCategory string
}

// Orchestrator wires together everything one run needs.
type Orchestrator struct {
	Catalog catalog.Client
	Oracle  oracle.Client
	Store   *decisionstore.Store
	Clock   clock.Clock

	// OnRunComplete, if set, is invoked after every run (including failed
	// ones) with the summary produced so far.
	OnRunComplete func(RunSummary)
}

// Run executes one full classification pass and returns its summary. It
// never returns a nil summary, even on error, so a caller can always
// report partial progress.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (summary RunSummary, err error) {
	start := o.Clock.Now()
	summary = RunSummary{StartedAt: start, DryRun: opts.DryRun}

	defer func() {
		summary.FinishedAt = o.Clock.Now()
		metrics.RunDurationSeconds.Observe(summary.FinishedAt.Sub(start).Seconds())
		if o.OnRunComplete != nil {
			o.OnRunComplete(summary)
		}
	}()

	rubrics, diags, err := o.loadRubrics(opts)
	summary.Diagnostics = diags
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("loading rubrics: %w", err)
	}

	movies, err := o.Catalog.ListMovies(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("listing catalog movies: %w", err)
	}

	for _, r := range rubrics {
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, ctx.Err().Error())
			break
		}
		cs, err := o.runRubric(ctx, r, movies, opts)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("category", r.Name).Msg("rubric run failed")
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", r.Name, err))
			o.Store.LogError(r.Name, err.Error())
		}
		summary.Categories = append(summary.Categories, cs)
		summary.TotalCostUSD += cs.CostUSD

		if !opts.DryRun {
			if saveErr := o.Store.Save(); saveErr != nil {
				logging.Ctx(ctx).Error().Err(saveErr).Msg("checkpoint save failed")
				summary.Errors = append(summary.Errors, saveErr.Error())
			}
		}
	}

	outcome := "success"
	if len(summary.Errors) > 0 {
		outcome = "partial"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	return summary, nil
}

func (o *Orchestrator) loadRubrics(opts Options) ([]rubric.Rubric, []rubric.Diagnostic, error) {
	entries, err := os.ReadDir(opts.RubricDir)
	if err != nil {
		return nil, nil, err
	}

	var rubrics []rubric.Rubric
	var diags []rubric.Diagnostic
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(opts.RubricDir, e.Name())
		found, fileDiags, err := rubric.Extract(path)
		diags = append(diags, fileDiags...)
		if err != nil {
			diags = append(diags, rubric.Diagnostic{File: path, Message: err.Error()})
			continue
		}
		for _, r := range found {
			if !r.Enabled {
				continue
			}
			if opts.OnlyCategory != "" && !strings.EqualFold(opts.OnlyCategory, r.Name) {
				continue
			}
			rubrics = append(rubrics, r)
		}
	}

	sort.SliceStable(rubrics, func(i, j int) bool {
		if rubrics[i].Priority != rubrics[j].Priority {
			return rubrics[i].Priority > rubrics[j].Priority
		}
		return rubrics[i].Name < rubrics[j].Name
	})
	return rubrics, diags, nil
}

// isYAML reports whether name is a rubric host file: a .yml/.yaml file not
// starting with "." or "_" (dotfiles and underscore-prefixed scratch files
// are ignored even if they parse as valid YAML).
func isYAML(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

func (o *Orchestrator) runRubric(ctx context.Context, r rubric.Rubric, movies []catalog.Movie, opts Options) (CategorySummary, error) {
	cs := CategorySummary{Category: r.Name}

	candidates := make([]planner.Candidate, 0, len(movies))
	byID := make(map[int]catalog.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
		fp := fingerprint.Compute(fingerprint.Movie{
			Title: m.Title, Year: m.Year, Overview: m.Overview,
			Genres: m.Genres, Directors: m.Directors, Actors: m.Actors,
		})
		candidates = append(candidates, planner.Candidate{MovieID: m.ID, Fingerprint: fp})
	}

	plan := planner.Build(r, candidates, o.Store, opts.ForceRefresh, opts.BatchSize)
	cs.Reused = len(plan.Reuse)

	decisions := make(map[int]decisionstore.Decision, len(movies))
	for _, d := range plan.Reuse {
		decisions[d.MovieID] = d
	}

	for _, batch := range plan.Batches {
		if ctx.Err() != nil {
			return cs, ctx.Err()
		}

		req := oracle.Request{
			Category:            r.Name,
			Prompt:               r.Prompt,
			ConfidenceThreshold:  r.ConfidenceThreshold,
			IncludeExamples:      r.ExampleIncludes,
			ExcludeExamples:      r.ExampleExcludes,
		}
		for _, c := range batch {
			m := byID[c.MovieID]
			req.Movies = append(req.Movies, oracle.MovieInput{
				ID: m.ID, Title: m.Title, Year: m.Year, Overview: m.Overview,
				Genres: m.Genres, Directors: m.Directors, Actors: m.Actors,
			})
		}

		// The batch call is not cancelled with ctx, so a shutdown signal lets
		// the batch already in flight finish and be checkpointed.
		resp, err := o.Oracle.Classify(context.WithoutCancel(ctx), req)
		if err != nil {
			return cs, fmt.Errorf("classifying batch: %w", err)
		}

		cs.InputTokens += resp.Usage.InputTokens
		cs.OutputTokens += resp.Usage.OutputTokens
		cs.CostUSD += resp.Usage.EstimatedCost
		cs.Classified += len(batch)

		byMovieFingerprint := make(map[int]string, len(batch))
		for _, c := range batch {
			byMovieFingerprint[c.MovieID] = c.Fingerprint
		}

		for _, v := range resp.Verdicts {
			d := decisionstore.Decision{
				MovieID:     v.MovieID,
				Category:    r.Name,
				Include:     v.Include,
				Confidence:  v.Confidence,
				Fingerprint: byMovieFingerprint[v.MovieID],
				DecidedAt:   o.Clock.Now(),
			}
			o.Store.SetDecision(d)
			decisions[v.MovieID] = d
		}

		if !opts.DryRun {
			if err := o.Store.Save(); err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("checkpoint save failed")
			}
		}
	}

	for _, refined := range planner.SelectForRefinement(r, valuesOf(decisions)) {
		if ctx.Err() != nil {
			break
		}
		m, ok := byID[refined.MovieID]
		if !ok {
			continue
		}
		req := oracle.Request{
			Category:            r.Name,
			Prompt:               r.Prompt,
			ConfidenceThreshold:  r.ConfidenceThreshold,
			IncludeExamples:      r.ExampleIncludes,
			ExcludeExamples:      r.ExampleExcludes,
			Movies: []oracle.MovieInput{{
				ID: m.ID, Title: m.Title, Year: m.Year, Overview: m.Overview,
				Genres: m.Genres, Directors: m.Directors, Actors: m.Actors,
			}},
		}
		resp, err := o.Oracle.Classify(ctx, req)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int("movie_id", m.ID).Msg("refinement reissue failed")
			continue
		}
		cs.InputTokens += resp.Usage.InputTokens
		cs.OutputTokens += resp.Usage.OutputTokens
		cs.CostUSD += resp.Usage.EstimatedCost
		for _, v := range resp.Verdicts {
			d := decisionstore.Decision{
				MovieID: v.MovieID, Category: r.Name, Include: v.Include,
				Confidence: v.Confidence, Fingerprint: refined.Fingerprint,
				DecidedAt: o.Clock.Now(),
			}
			o.Store.SetDecision(d)
			decisions[v.MovieID] = d
		}
	}

	return o.reconcileCategory(ctx, r, movies, decisions, cs, opts)
}

// reconcileCategory mutates movies[i].Labels in place for every movie it
// actually changes, so that a lower-priority rubric processed later in the
// same Run sees the catalog state this rubric just produced, per the
// cross-rubric label-visibility ordering requirement.
func (o *Orchestrator) reconcileCategory(ctx context.Context, r rubric.Rubric, movies []catalog.Movie, decisions map[int]decisionstore.Decision, cs CategorySummary, opts Options) (CategorySummary, error) {
	for i := range movies {
		m := movies[i]
		d, ok := decisions[m.ID]
		if !ok {
			continue
		}

		action := reconcile.Decide(reconcile.Input{
			Rubric: r, Include: d.Include, Confidence: d.Confidence, CurrentLabels: m.Labels,
		})
		if action == reconcile.NoOp {
			continue
		}

		switch action {
		case reconcile.Add:
			cs.Added = append(cs.Added, m.Title)
		case reconcile.Remove:
			cs.Removed = append(cs.Removed, m.Title)
		}

		metrics.ReconcileChangesTotal.WithLabelValues(r.Name, action.String()).Inc()
		o.Store.LogChange(decisionstore.ChangeEntry{
			MovieID: m.ID, MovieName: m.Title, Category: r.Name, Action: action.String(),
		})

		if opts.DryRun {
			continue
		}

		newLabels := reconcile.ApplyAction(m.Labels, r.ExpectedLabel, action)
		if err := o.applyLabels(ctx, m, newLabels); err != nil {
			return cs, fmt.Errorf("applying labels to movie %d: %w", m.ID, err)
		}
		movies[i].Labels = newLabels
	}
	return cs, nil
}

func (o *Orchestrator) applyLabels(ctx context.Context, m catalog.Movie, labels []string) error {
	ids := make([]int, 0, len(labels))
	for _, name := range labels {
		label, err := o.Catalog.EnsureLabel(ctx, name)
		if err != nil {
			return err
		}
		ids = append(ids, label.ID)
	}
	return o.Catalog.SetMovieLabels(ctx, m.ID, ids)
}

func valuesOf(m map[int]decisionstore.Decision) []decisionstore.Decision {
	out := make([]decisionstore.Decision, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
