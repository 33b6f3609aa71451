// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/kai-classifier/internal/rubric"
)

func baseRubric() rubric.Rubric {
	return rubric.Rubric{
		Name:                "Film Noir",
		ConfidenceThreshold: 0.7,
		ExpectedLabel:       "KAI-film-noir",
	}
}

func TestDecideAddsWhenIncludedAndAbsent(t *testing.T) {
	a := Decide(Input{Rubric: baseRubric(), Include: true, Confidence: 0.9, CurrentLabels: nil})
	assert.Equal(t, Add, a)
}

func TestDecideNoOpWhenAlreadyPresentAndIntended(t *testing.T) {
	a := Decide(Input{Rubric: baseRubric(), Include: true, Confidence: 0.9, CurrentLabels: []string{"KAI-film-noir"}})
	assert.Equal(t, NoOp, a)
}

func TestDecideRemovesWhenPresentButBelowThreshold(t *testing.T) {
	a := Decide(Input{Rubric: baseRubric(), Include: true, Confidence: 0.5, CurrentLabels: []string{"KAI-film-noir"}})
	assert.Equal(t, Remove, a)
}

func TestDecideRespectsExcludeLabels(t *testing.T) {
	r := baseRubric()
	r.ExcludeLabels = []string{"KAI-documentary"}
	a := Decide(Input{Rubric: r, Include: true, Confidence: 0.9, CurrentLabels: []string{"KAI-documentary"}})
	assert.Equal(t, NoOp, a)
}

func TestDecideRequiresIncludeLabelWhenSet(t *testing.T) {
	r := baseRubric()
	r.IncludeLabels = []string{"KAI-crime"}
	a := Decide(Input{Rubric: r, Include: true, Confidence: 0.9, CurrentLabels: nil})
	assert.Equal(t, NoOp, a)

	a = Decide(Input{Rubric: r, Include: true, Confidence: 0.9, CurrentLabels: []string{"KAI-crime"}})
	assert.Equal(t, Add, a)
}

func TestLabelOwnershipInvariant(t *testing.T) {
	current := []string{"KAI-noir-old", "manual-favorite", "KAI-film-noir"}
	r := baseRubric() // ExpectedLabel KAI-film-noir
	action := Decide(Input{Rubric: r, Include: false, Confidence: 0.1, CurrentLabels: current})
	assert.Equal(t, Remove, action)

	after := ApplyAction(current, r.ExpectedLabel, action)
	assert.NotContains(t, after, "KAI-film-noir")
	assert.Contains(t, after, "manual-favorite")
	assert.Contains(t, after, "KAI-noir-old")
}

func TestApplyActionRefusesToRemoveUnownedLabel(t *testing.T) {
	current := []string{"manual-favorite"}
	after := ApplyAction(current, "manual-favorite", Remove)
	assert.Equal(t, current, after)
}

func TestIsOwned(t *testing.T) {
	assert.True(t, IsOwned("KAI-film-noir"))
	assert.False(t, IsOwned("manual-favorite"))
}
