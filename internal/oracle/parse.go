// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// decodedResponse mirrors the JSON object the oracle is instructed to
// reply with.
type decodedResponse struct {
	CategoryName string `json:"category_name"`
	Decisions    []struct {
		MovieID    int     `json:"movie_id"`
		Title      string  `json:"title"`
		Include    bool    `json:"include"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	} `json:"decisions"`
}

// ErrMalformedResponse is wrapped by any parse failure that survives all
// three salvage steps.
var ErrMalformedResponse = errors.New("oracle: malformed response")

// parseDecisions applies the three-step salvage algorithm to raw oracle
// output: a strict parse first, then stripping of prose/code-fence
// wrapping around an embedded JSON object, then a brace-balance scan that
// extracts the first complete top-level object regardless of what
// surrounds it. Each step is tried only after the previous one fails.
func parseDecisions(raw string) ([]Verdict, error) {
	if v, err := strictParse(raw); err == nil {
		return v, nil
	}

	if stripped, ok := stripWrapping(raw); ok {
		if v, err := strictParse(stripped); err == nil {
			return v, nil
		}
	}

	if extracted, ok := braceBalanceScan(raw); ok {
		if v, err := strictParse(extracted); err == nil {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: could not extract a decisions object", ErrMalformedResponse)
}

func strictParse(s string) ([]Verdict, error) {
	var decoded decodedResponse
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Decisions) == 0 {
		return nil, fmt.Errorf("%w: no decisions in response", ErrMalformedResponse)
	}
	verdicts := make([]Verdict, len(decoded.Decisions))
	for i, d := range decoded.Decisions {
		verdicts[i] = Verdict{
			MovieID:    d.MovieID,
			Include:    d.Include,
			Confidence: d.Confidence,
			Reasoning:  d.Reasoning,
		}
	}
	return verdicts, nil
}

// stripWrapping removes a leading prose preamble and/or a markdown code
// fence around a JSON object, returning the narrowed candidate.
func stripWrapping(s string) (string, bool) {
	s = strings.TrimSpace(s)

	if strings.Contains(s, "```") {
		start := strings.Index(s, "```")
		rest := s[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "\n")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first < 0 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}

// braceBalanceScan walks s and returns the first substring that forms a
// balanced, top-level {...} object, respecting string literals and
// escapes so braces inside quoted text don't confuse the count.
func braceBalanceScan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
