// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package reconcile computes the minimal-change label diff between a
// movie's current catalog labels and the set implied by the latest
// oracle decisions, owning only the KAI- namespace.
package reconcile

import (
	"strings"

	"github.com/tomtom215/kai-classifier/internal/rubric"
)

// Action is the mutation the reconciler wants to apply for one movie and
// one rubric's label.
type Action int

const (
	// NoOp means the label's current presence already matches intent.
	NoOp Action = iota
	// Add means the label must be added.
	Add
	// Remove means the label must be removed.
	Remove
)

func (a Action) String() string {
	switch a {
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return "noop"
	}
}

// Input is everything the reconciler needs to decide one movie/rubric
// label action.
type Input struct {
	Rubric        rubric.Rubric
	Include       bool
	Confidence    float64
	CurrentLabels []string // the movie's full current label set
}

// Decide computes whether r.Rubric's expected label should be present on a
// movie, per:
//
//	intended = include AND confidence >= threshold
//	           AND movie has no exclude_label
//	           AND (movie has any include_label OR include_labels is empty)
//
// and returns the action implied against the label's current presence.
func Decide(in Input) Action {
	hasAny := func(labels []string) bool {
		for _, want := range labels {
			for _, have := range in.CurrentLabels {
				if have == want {
					return true
				}
			}
		}
		return false
	}

	intended := in.Include &&
		in.Confidence >= in.Rubric.ConfidenceThreshold &&
		!hasAny(in.Rubric.ExcludeLabels) &&
		(len(in.Rubric.IncludeLabels) == 0 || hasAny(in.Rubric.IncludeLabels))

	current := contains(in.CurrentLabels, in.Rubric.ExpectedLabel)

	switch {
	case intended && !current:
		return Add
	case current && !intended:
		return Remove
	default:
		return NoOp
	}
}

// IsOwned reports whether label falls inside the namespace this system is
// permitted to mutate. Any label outside it must never be added or
// removed, regardless of what a rubric computes.
func IsOwned(label string) bool {
	return strings.HasPrefix(label, rubric.LabelPrefix)
}

func contains(labels []string, target string) bool {
	for _, l := range labels {
		if l == target {
			return true
		}
	}
	return false
}

// ApplyAction returns the label set that results from applying action for
// label against current, guaranteed not to touch any label IsOwned
// reports false for.
func ApplyAction(current []string, label string, action Action) []string {
	switch action {
	case Add:
		if !IsOwned(label) || contains(current, label) {
			return current
		}
		return append(append([]string{}, current...), label)
	case Remove:
		if !IsOwned(label) {
			// An ownership violation: the caller asked to remove a label
			// this system does not own. Refuse silently; Decide never
			// produces this since ExpectedLabel is always KAI--prefixed,
			// but ApplyAction is defensive against misuse.
			return current
		}
		out := make([]string, 0, len(current))
		for _, l := range current {
			if l != label {
				out = append(out, l)
			}
		}
		return out
	default:
		return current
	}
}
