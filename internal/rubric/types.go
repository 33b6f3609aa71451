// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package rubric isolates the KOMETA-AI comment-block DSL embedded inside
// host YAML configuration files and parses it into Rubric records, without
// disturbing the rest of the host document.
package rubric

import "fmt"

// Rubric describes one category a movie can be classified into.
type Rubric struct {
	Name                 string
	Enabled              bool
	Prompt               string
	ConfidenceThreshold  float64
	Priority             int
	IncludeLabels        []string
	ExcludeLabels        []string
	UseRefinement        bool
	RefinementBand       float64
	ExampleIncludes      []string
	ExampleExcludes      []string
	ExpectedLabel        string
	SourceFile           string
}

// Diagnostic is a non-fatal problem encountered while extracting rubrics.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.File, d.Message)
}
