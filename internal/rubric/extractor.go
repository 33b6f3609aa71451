// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package rubric

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

const (
	blockStart = "=== KOMETA-AI ==="
	blockEnd   = "=== END KOMETA-AI ==="
)

// recognizedKeys are the indent-0 keys the block grammar understands. Any
// other indent-0 key inside a block is left untouched and ignored, so older
// or newer host documents don't fail extraction over one unknown field.
var recognizedKeys = map[string]bool{
	"enabled":                  true,
	"prompt":                   true,
	"confidence_threshold":     true,
	"priority":                 true,
	"include_tags":             true,
	"exclude_tags":             true,
	"use_iterative_refinement": true,
	"refinement_threshold":     true,
	"example_inclusions":       true,
	"example_exclusions":       true,
}

// Extract reads path and returns one Rubric per KOMETA-AI comment block it
// finds, plus any diagnostics encountered along the way. A block with no
// radarr_taglist scalar in its following category is reported as a
// diagnostic and otherwise skipped, per the no-taglist-no-rubric rule.
func Extract(path string) ([]Rubric, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	var rubrics []Rubric
	var diags []Diagnostic

	for i := 0; i < len(lines); i++ {
		if !isBlockMarker(lines[i], blockStart) {
			continue
		}
		startLine := i
		end := findBlockEnd(lines, i+1)
		if end < 0 {
			diags = append(diags, Diagnostic{File: path, Line: startLine + 1, Message: "KOMETA-AI block opened but never closed"})
			break
		}

		body := stripCommentMarkers(lines[startLine+1 : end])
		fields, fieldDiags := parseFields(body, path, startLine+2)
		diags = append(diags, fieldDiags...)

		name, nameLine, ok := findCategoryName(lines, end+1)
		if !ok {
			diags = append(diags, Diagnostic{File: path, Line: end + 1, Message: "KOMETA-AI block has no following category name"})
			i = end
			continue
		}

		tagLine, current, found := findRadarrTaglist(lines, nameLine+1)
		if !found {
			diags = append(diags, Diagnostic{File: path, Line: nameLine + 1, Message: "category \"" + name + "\" has a KOMETA-AI block but no radarr_taglist; skipping"})
			i = end
			continue
		}

		expected := ExpectedLabel(name)
		if current != expected {
			diags = append(diags, Diagnostic{
				File:    path,
				Line:    tagLine + 1,
				Message: "category \"" + name + "\": radarr_taglist is \"" + current + "\", expected \"" + expected + "\"",
			})
		}

		r := fieldsToRubric(name, expected, fields)
		r.SourceFile = path
		rubrics = append(rubrics, r)

		i = end
	}

	return rubrics, diags, nil
}

func isBlockMarker(line, marker string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	return trimmed == marker
}

func findBlockEnd(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if isBlockMarker(lines[i], blockEnd) {
			return i
		}
	}
	return -1
}

// stripCommentMarkers removes the leading "# " (or bare "#") that every
// line inside a block carries, since the block lives inside a YAML comment.
func stripCommentMarkers(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		s := strings.TrimLeft(l, " \t")
		s = strings.TrimPrefix(s, "#")
		s = strings.TrimPrefix(s, " ")
		out[i] = s
	}
	return out
}

// rawFields holds the parsed-but-untyped key/value pairs from one block.
type rawFields map[string]string

// parseFields walks the de-commented block body applying the prompt-last
// rule: once a "prompt: |" literal block opens, every subsequent line is
// folded into the prompt value until either the block body ends or a line
// at indent 0 matches a recognized key, which closes the literal and is
// reprocessed as a normal key/value line. This defends against prompts that
// happen to contain a line that looks like "confidence_threshold: 0.9".
func parseFields(body []string, path string, lineOffset int) (rawFields, []Diagnostic) {
	fields := rawFields{}
	var diags []Diagnostic

	var promptLines []string
	inPrompt := false

	flushPrompt := func() {
		if inPrompt {
			fields["prompt"] = strings.TrimRight(strings.Join(promptLines, "\n"), "\n")
			promptLines = nil
			inPrompt = false
		}
	}

	for idx := 0; idx < len(body); idx++ {
		line := body[idx]
		lineNo := lineOffset + idx

		if inPrompt {
			if indentLevel(line) > 0 || strings.TrimSpace(line) == "" {
				promptLines = append(promptLines, strings.TrimPrefix(line, "  "))
				continue
			}
			key := keyOf(line)
			if recognizedKeys[key] {
				flushPrompt()
			} else {
				// Not a recognized key at indent 0: still part of the
				// literal block (e.g. a blank-looking continuation).
				promptLines = append(promptLines, line)
				continue
			}
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if indentLevel(line) > 0 {
			// Stray indented line outside of a literal block; ignore.
			continue
		}

		key, value, hasValue := splitKeyValue(line)
		if !recognizedKeys[key] {
			diags = append(diags, Diagnostic{File: path, Line: lineNo + 1, Message: "unrecognized KOMETA-AI key \"" + key + "\""})
			continue
		}

		if key == "prompt" && strings.TrimSpace(value) == "|" {
			inPrompt = true
			promptLines = nil
			continue
		}

		if hasValue {
			fields[key] = strings.TrimSpace(value)
		}
	}
	flushPrompt()

	return fields, diags
}

func indentLevel(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' {
			break
		}
		n++
	}
	return n
}

func keyOf(line string) string {
	k, _, _ := splitKeyValue(line)
	return k
}

func splitKeyValue(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	idx := strings.Index(trimmed, ":")
	if idx < 0 {
		return trimmed, "", false
	}
	return strings.TrimSpace(trimmed[:idx]), trimmed[idx+1:], true
}

// findCategoryName returns the first non-blank line after a block's end
// marker, treated as the YAML category key (e.g. "Film Noir:").
func findCategoryName(lines []string, from int) (name string, lineIdx int, ok bool) {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		key, _, hasColon := splitKeyValue(lines[i])
		if !hasColon || key == "" {
			return "", 0, false
		}
		return key, i, true
	}
	return "", 0, false
}

// findRadarrTaglist scans the category's nested sub-block (everything more
// indented than the category line, until indentation returns to the
// category's own level or shallower) for a radarr_taglist scalar.
func findRadarrTaglist(lines []string, from int) (lineIdx int, value string, found bool) {
	if from >= len(lines) {
		return 0, "", false
	}
	categoryIndent := -1
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		ind := indentLevel(lines[i])
		if categoryIndent == -1 {
			categoryIndent = ind
		}
		if ind < categoryIndent {
			break
		}
		key, value, hasColon := splitKeyValue(lines[i])
		if hasColon && key == "radarr_taglist" {
			return i, strings.Trim(strings.TrimSpace(value), `"'`), true
		}
		if isBlockMarker(lines[i], blockStart) {
			// Ran into the next category's block before finding one.
			break
		}
	}
	return 0, "", false
}

func fieldsToRubric(name, expected string, f rawFields) Rubric {
	r := Rubric{
		Name:          name,
		ExpectedLabel: expected,
		Enabled:       parseBool(f["enabled"], true),
		Prompt:        f["prompt"],
		ConfidenceThreshold: parseFloat(f["confidence_threshold"], 0.7),
		Priority:            parseInt(f["priority"], 0),
		IncludeLabels:       parseList(f["include_tags"]),
		ExcludeLabels:       parseList(f["exclude_tags"]),
		UseRefinement:       parseBool(f["use_iterative_refinement"], false),
		RefinementBand:      parseFloat(f["refinement_threshold"], 0.1),
		ExampleIncludes:     parseList(f["example_inclusions"]),
		ExampleExcludes:     parseList(f["example_exclusions"]),
	}
	return r
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseList parses a bracketed, comma-separated inline list such as
// "[foo, bar]" or an empty string into nil.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
