// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package planner

import (
	"math"

	"github.com/tomtom215/kai-classifier/internal/decisionstore"
	"github.com/tomtom215/kai-classifier/internal/rubric"
)

// NeedsRefinement reports whether d's confidence falls within r's
// refinement band of its threshold, meaning it is a candidate for the
// single-item refinement reissue pass.
func NeedsRefinement(r rubric.Rubric, d decisionstore.Decision) bool {
	if !r.UseRefinement {
		return false
	}
	return math.Abs(d.Confidence-r.ConfidenceThreshold) < r.RefinementBand
}

// SelectForRefinement filters decisions to those NeedsRefinement accepts.
func SelectForRefinement(r rubric.Rubric, decisions []decisionstore.Decision) []decisionstore.Decision {
	if !r.UseRefinement {
		return nil
	}
	var out []decisionstore.Decision
	for _, d := range decisions {
		if NeedsRefinement(r, d) {
			out = append(out, d)
		}
	}
	return out
}
