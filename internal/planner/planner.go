// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package planner partitions a rubric's candidate movies into reusable
// cached decisions and batches that need a fresh oracle call, and
// schedules the refinement pass for near-threshold decisions.
package planner

import (
	"sort"

	"github.com/tomtom215/kai-classifier/internal/decisionstore"
	"github.com/tomtom215/kai-classifier/internal/fingerprint"
	"github.com/tomtom215/kai-classifier/internal/rubric"
)

// DefaultBatchSize is the contiguous batch size used when none is
// configured.
const DefaultBatchSize = 150

// Candidate is one movie under consideration for a rubric, reduced to
// what the planner needs to decide reuse vs. reask.
type Candidate struct {
	MovieID     int
	Fingerprint string
}

// Plan is the partitioned work for one rubric.
type Plan struct {
	Reuse  []decisionstore.Decision
	Batches [][]Candidate
}

// Build partitions candidates into reuse and batched-reask sets, per:
//
//	reuse: same fingerprint as last decision, not force-refreshed
//	reask: new, fingerprint-changed, or force-refreshed
//
// Near-threshold decisions are not reasked here: they are reused like any
// other unchanged decision, and the refinement pass (see
// SelectForRefinement/NeedsRefinement) reissues them as single-item calls.
// The orchestrator runs that pass over reused decisions as well as fresh
// ones, so a near-threshold decision gets one single-item call on every
// run rather than a place in a full reask batch.
//
// Candidates are stable-sorted by movie id before batching, and reask
// batches are contiguous slices of size batchSize (DefaultBatchSize if
// <= 0).
func Build(r rubric.Rubric, candidates []Candidate, store *decisionstore.Store, forceRefresh bool, batchSize int) Plan {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MovieID < sorted[j].MovieID })

	var reuse []decisionstore.Decision
	var reask []Candidate

	for _, c := range sorted {
		prior, ok := store.GetDecision(c.MovieID, r.Name)

		switch {
		case forceRefresh, !ok:
			reask = append(reask, c)
		case prior.Fingerprint != c.Fingerprint:
			reask = append(reask, c)
		default:
			reuse = append(reuse, prior)
		}
	}

	return Plan{Reuse: reuse, Batches: chunk(reask, batchSize)}
}

func chunk(items []Candidate, size int) [][]Candidate {
	if len(items) == 0 {
		return nil
	}
	var batches [][]Candidate
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// Fingerprint computes the content fingerprint the planner compares
// against the decision store, delegating to the shared fingerprint
// package so both sides of the comparison always use the same canonical
// encoding.
func Fingerprint(m fingerprint.Movie) string {
	return fingerprint.Compute(m)
}
