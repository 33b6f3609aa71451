// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package oracle talks to the external AI collaborator that classifies
// movies into rubric categories.
package oracle

import "context"

// MovieInput is the projection of a movie the oracle is given to classify.
type MovieInput struct {
	ID        int
	Title     string
	Year      int
	Overview  string
	Genres    []string
	Directors []string
	Actors    []string
}

// Verdict is the oracle's answer for one movie in one rubric category.
type Verdict struct {
	MovieID    int
	Include    bool
	Confidence float64
	Reasoning  string
}

// Usage accounts for the tokens and estimated cost of one oracle call.
type Usage struct {
	InputTokens    int
	OutputTokens   int
	EstimatedCost  float64
	RequestCount   int
}

// Request bundles everything the oracle needs to classify a batch of
// movies against one rubric category.
type Request struct {
	Category            string
	Prompt              string
	ConfidenceThreshold float64
	IncludeExamples     []string
	ExcludeExamples     []string
	Movies              []MovieInput
}

// Response is the oracle's answer for an entire batch plus the usage it
// cost to produce.
type Response struct {
	Verdicts []Verdict
	Usage    Usage
}

// Client classifies batches of movies against a rubric category.
type Client interface {
	Classify(ctx context.Context, req Request) (Response, error)
}
