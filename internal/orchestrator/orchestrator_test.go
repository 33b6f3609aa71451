// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/kai-classifier/internal/catalog"
	"github.com/tomtom215/kai-classifier/internal/decisionstore"
	"github.com/tomtom215/kai-classifier/internal/oracle"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time                       { return c.t }
func (c fixedClock) Sleep(time.Duration)                   {}
func (c fixedClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

type fakeCatalog struct {
	movies []catalog.Movie
	labels map[string]catalog.Label
	nextID int
	set    map[int][]int
}

func newFakeCatalog(movies []catalog.Movie) *fakeCatalog {
	return &fakeCatalog{movies: movies, labels: make(map[string]catalog.Label), nextID: 1, set: make(map[int][]int)}
}

func (f *fakeCatalog) ListMovies(ctx context.Context) ([]catalog.Movie, error) { return f.movies, nil }
func (f *fakeCatalog) ListLabels(ctx context.Context) ([]catalog.Label, error) {
	out := make([]catalog.Label, 0, len(f.labels))
	for _, l := range f.labels {
		out = append(out, l)
	}
	return out, nil
}
func (f *fakeCatalog) GetLabelByName(ctx context.Context, name string) (catalog.Label, bool, error) {
	l, ok := f.labels[name]
	return l, ok, nil
}
func (f *fakeCatalog) EnsureLabel(ctx context.Context, name string) (catalog.Label, error) {
	if l, ok := f.labels[name]; ok {
		return l, nil
	}
	l := catalog.Label{ID: f.nextID, Name: name}
	f.nextID++
	f.labels[name] = l
	return l, nil
}
func (f *fakeCatalog) SetMovieLabels(ctx context.Context, movieID int, labelIDs []int) error {
	f.set[movieID] = labelIDs
	return nil
}

type fakeOracle struct {
	verdicts map[int]oracle.Verdict
}

func (f *fakeOracle) Classify(ctx context.Context, req oracle.Request) (oracle.Response, error) {
	resp := oracle.Response{Usage: oracle.Usage{InputTokens: 10, OutputTokens: 5, EstimatedCost: 0.001}}
	for _, m := range req.Movies {
		if v, ok := f.verdicts[m.ID]; ok {
			resp.Verdicts = append(resp.Verdicts, v)
		}
	}
	return resp, nil
}

func writeRubricFile(t *testing.T, dir, filename, category string, threshold float64) {
	t.Helper()
	content := "radarr:\n" +
		"  overlays:\n" +
		"    # === KOMETA-AI ===\n" +
		"    # enabled: true\n" +
		"    # prompt: |\n" +
		"    #   Is this a " + category + " movie?\n" +
		"    # confidence_threshold: " + floatStr(threshold) + "\n" +
		"    # === END KOMETA-AI ===\n" +
		"    " + category + ":\n" +
		"      radarr_taglist: \"KAI-" + category + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func floatStr(f float64) string {
	if f == 0.7 {
		return "0.7"
	}
	return "0.5"
}

func TestRunClassifiesAndReconciles(t *testing.T) {
	dir := t.TempDir()
	writeRubricFile(t, dir, "heist.yml", "heist", 0.7)

	movies := []catalog.Movie{
		{ID: 1, Title: "Ocean's Eleven", Labels: nil},
		{ID: 2, Title: "Boring Drama", Labels: []string{"KAI-heist"}},
	}
	cat := newFakeCatalog(movies)
	orc := &fakeOracle{verdicts: map[int]oracle.Verdict{
		1: {MovieID: 1, Include: true, Confidence: 0.95},
		2: {MovieID: 2, Include: false, Confidence: 0.1},
	}}

	store, err := decisionstore.Open(filepath.Join(t.TempDir(), "state.json"), fixedClock{t: time.Now()})
	require.NoError(t, err)

	o := &Orchestrator{Catalog: cat, Oracle: orc, Store: store, Clock: fixedClock{t: time.Now()}}
	summary, err := o.Run(context.Background(), Options{RubricDir: dir, BatchSize: 10})
	require.NoError(t, err)

	require.Len(t, summary.Categories, 1)
	cs := summary.Categories[0]
	assert.Equal(t, "heist", cs.Category)
	assert.Contains(t, cs.Added, "Ocean's Eleven")
	assert.Contains(t, cs.Removed, "Boring Drama")
	assert.Empty(t, summary.Errors)

	assert.Contains(t, cat.set[1], cat.labels["KAI-heist"].ID)
	assert.NotContains(t, cat.set[2], cat.labels["KAI-heist"].ID)
}

func TestRunDryRunAppliesNoLabels(t *testing.T) {
	dir := t.TempDir()
	writeRubricFile(t, dir, "heist.yml", "heist", 0.7)

	movies := []catalog.Movie{{ID: 1, Title: "Ocean's Eleven"}}
	cat := newFakeCatalog(movies)
	orc := &fakeOracle{verdicts: map[int]oracle.Verdict{1: {MovieID: 1, Include: true, Confidence: 0.95}}}

	store, err := decisionstore.Open(filepath.Join(t.TempDir(), "state.json"), fixedClock{t: time.Now()})
	require.NoError(t, err)

	o := &Orchestrator{Catalog: cat, Oracle: orc, Store: store, Clock: fixedClock{t: time.Now()}}
	summary, err := o.Run(context.Background(), Options{RubricDir: dir, BatchSize: 10, DryRun: true})
	require.NoError(t, err)

	require.Len(t, summary.Categories, 1)
	assert.Contains(t, summary.Categories[0].Added, "Ocean's Eleven")
	assert.Empty(t, cat.set)
}

// A higher-priority rubric's label mutation must be visible to a
// lower-priority rubric processed later in the same run, so include_tags/
// exclude_tags referencing it take effect immediately.
func TestRunAppliesLowerPriorityRubricAgainstHigherPriorityLabels(t *testing.T) {
	dir := t.TempDir()
	content := "radarr:\n" +
		"  overlays:\n" +
		"    # === KOMETA-AI ===\n" +
		"    # enabled: true\n" +
		"    # priority: 10\n" +
		"    # prompt: |\n" +
		"    #   Is this a heist movie?\n" +
		"    # confidence_threshold: 0.5\n" +
		"    # === END KOMETA-AI ===\n" +
		"    heist:\n" +
		"      radarr_taglist: \"KAI-heist\"\n" +
		"    # === KOMETA-AI ===\n" +
		"    # enabled: true\n" +
		"    # priority: 1\n" +
		"    # include_tags: [\"KAI-heist\"]\n" +
		"    # prompt: |\n" +
		"    #   Is this a heist sequel?\n" +
		"    # confidence_threshold: 0.5\n" +
		"    # === END KOMETA-AI ===\n" +
		"    heist-sequel:\n" +
		"      radarr_taglist: \"KAI-heist-sequel\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "heist.yml"), []byte(content), 0o644))

	movies := []catalog.Movie{{ID: 1, Title: "Ocean's Eleven"}}
	cat := newFakeCatalog(movies)
	orc := &fakeOracle{verdicts: map[int]oracle.Verdict{
		1: {MovieID: 1, Include: true, Confidence: 0.95},
	}}

	store, err := decisionstore.Open(filepath.Join(t.TempDir(), "state.json"), fixedClock{t: time.Now()})
	require.NoError(t, err)

	o := &Orchestrator{Catalog: cat, Oracle: orc, Store: store, Clock: fixedClock{t: time.Now()}}
	summary, err := o.Run(context.Background(), Options{RubricDir: dir, BatchSize: 10})
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	require.Len(t, summary.Categories, 2)

	assert.Equal(t, "heist", summary.Categories[0].Category)
	assert.Equal(t, "heist-sequel", summary.Categories[1].Category)
	assert.Contains(t, summary.Categories[0].Added, "Ocean's Eleven")
	assert.Contains(t, summary.Categories[1].Added, "Ocean's Eleven")
}

func TestIsYAMLIgnoresDotAndUnderscorePrefixedFiles(t *testing.T) {
	assert.True(t, isYAML("heist.yml"))
	assert.True(t, isYAML("heist.yaml"))
	assert.False(t, isYAML(".heist.yml"))
	assert.False(t, isYAML("_heist.yaml"))
	assert.False(t, isYAML("heist.txt"))
}

func TestRunInvokesOnRunComplete(t *testing.T) {
	dir := t.TempDir()
	writeRubricFile(t, dir, "heist.yml", "heist", 0.7)

	cat := newFakeCatalog(nil)
	orc := &fakeOracle{verdicts: map[int]oracle.Verdict{}}
	store, err := decisionstore.Open(filepath.Join(t.TempDir(), "state.json"), fixedClock{t: time.Now()})
	require.NoError(t, err)

	var called bool
	o := &Orchestrator{Catalog: cat, Oracle: orc, Store: store, Clock: fixedClock{t: time.Now()}, OnRunComplete: func(RunSummary) { called = true }}
	_, err = o.Run(context.Background(), Options{RubricDir: dir, BatchSize: 10})
	require.NoError(t, err)
	assert.True(t, called)
}
