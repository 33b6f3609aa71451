// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package planner

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/kai-classifier/internal/decisionstore"
	"github.com/tomtom215/kai-classifier/internal/rubric"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time                       { return c.t }
func (c fixedClock) Sleep(time.Duration)                   {}
func (c fixedClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func newStore(t *testing.T) *decisionstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := decisionstore.Open(path, fixedClock{t: time.Now()})
	require.NoError(t, err)
	return s
}

func TestBuildReasksNewMovies(t *testing.T) {
	store := newStore(t)
	r := rubric.Rubric{Name: "heist", ConfidenceThreshold: 0.7}

	plan := Build(r, []Candidate{{MovieID: 1, Fingerprint: "fp1"}}, store, false, 150)
	assert.Empty(t, plan.Reuse)
	require.Len(t, plan.Batches, 1)
	assert.Len(t, plan.Batches[0], 1)
}

func TestBuildReusesUnchangedFingerprint(t *testing.T) {
	store := newStore(t)
	r := rubric.Rubric{Name: "heist", ConfidenceThreshold: 0.7}
	store.SetDecision(decisionstore.Decision{MovieID: 1, Category: "heist", Fingerprint: "fp1", Confidence: 0.95, Include: true})

	plan := Build(r, []Candidate{{MovieID: 1, Fingerprint: "fp1"}}, store, false, 150)
	require.Len(t, plan.Reuse, 1)
	assert.Empty(t, plan.Batches)
}

func TestBuildReasksOnFingerprintChange(t *testing.T) {
	store := newStore(t)
	r := rubric.Rubric{Name: "heist", ConfidenceThreshold: 0.7}
	store.SetDecision(decisionstore.Decision{MovieID: 1, Category: "heist", Fingerprint: "fp-old", Confidence: 0.95, Include: true})

	plan := Build(r, []Candidate{{MovieID: 1, Fingerprint: "fp-new"}}, store, false, 150)
	assert.Empty(t, plan.Reuse)
	require.Len(t, plan.Batches, 1)
}

func TestBuildForceRefreshReasksEverything(t *testing.T) {
	store := newStore(t)
	r := rubric.Rubric{Name: "heist", ConfidenceThreshold: 0.7}
	store.SetDecision(decisionstore.Decision{MovieID: 1, Category: "heist", Fingerprint: "fp1", Confidence: 0.95, Include: true})

	plan := Build(r, []Candidate{{MovieID: 1, Fingerprint: "fp1"}}, store, true, 150)
	assert.Empty(t, plan.Reuse)
	require.Len(t, plan.Batches, 1)
}

// A near-threshold decision with an unchanged fingerprint must still be
// reused on a later run: Build never puts it back into a reask batch; any
// further oracle call for it is the refinement pass's single-item reissue
// (SelectForRefinement).
func TestBuildReusesNearThresholdWhenFingerprintUnchanged(t *testing.T) {
	store := newStore(t)
	r := rubric.Rubric{Name: "heist", ConfidenceThreshold: 0.7, UseRefinement: true, RefinementBand: 0.1}
	store.SetDecision(decisionstore.Decision{MovieID: 1, Category: "heist", Fingerprint: "fp1", Confidence: 0.72, Include: true})

	plan := Build(r, []Candidate{{MovieID: 1, Fingerprint: "fp1"}}, store, false, 150)
	require.Len(t, plan.Reuse, 1)
	assert.Empty(t, plan.Batches)
}

func TestBuildBatchesAreContiguousAndSorted(t *testing.T) {
	store := newStore(t)
	r := rubric.Rubric{Name: "heist", ConfidenceThreshold: 0.7}

	candidates := []Candidate{{MovieID: 3, Fingerprint: "a"}, {MovieID: 1, Fingerprint: "b"}, {MovieID: 2, Fingerprint: "c"}}
	plan := Build(r, candidates, store, false, 2)

	require.Len(t, plan.Batches, 2)
	assert.Equal(t, []int{1, 2}, ids(plan.Batches[0]))
	assert.Equal(t, []int{3}, ids(plan.Batches[1]))
}

func ids(cs []Candidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.MovieID
	}
	return out
}

func TestNeedsRefinement(t *testing.T) {
	r := rubric.Rubric{ConfidenceThreshold: 0.7, UseRefinement: true, RefinementBand: 0.1}
	assert.True(t, NeedsRefinement(r, decisionstore.Decision{Confidence: 0.75}))
	assert.False(t, NeedsRefinement(r, decisionstore.Decision{Confidence: 0.95}))

	r.UseRefinement = false
	assert.False(t, NeedsRefinement(r, decisionstore.Decision{Confidence: 0.75}))
}
