// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPromptTemplate = `You are a precise film classification assistant. You will be given a
category's classification rules and a batch of movies. For each movie,
decide whether it belongs in the category, and respond with strict JSON
matching this shape and nothing else:

{"category_name": %q, "decisions": [{"movie_id": 0, "title": "", "include": true, "confidence": 0.0, "reasoning": ""}]}

confidence is a float between 0 and 1. Include one decision object per
movie in the batch, in any order. Do not include any text outside the
JSON object.`

type promptMovie struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Year      int      `json:"year"`
	Overview  string   `json:"overview"`
	Genres    []string `json:"genres"`
	Directors []string `json:"directors"`
	Actors    []string `json:"actors"`
}

// buildSystemPrompt returns the fixed instruction prompt for category.
func buildSystemPrompt(category string) string {
	return fmt.Sprintf(systemPromptTemplate, category)
}

// buildUserPrompt renders the rubric body and the serialized movie batch
// that together form the user turn of the classification request.
func buildUserPrompt(req Request) (string, error) {
	movies := make([]promptMovie, len(req.Movies))
	for i, m := range req.Movies {
		movies[i] = promptMovie{
			ID: m.ID, Title: m.Title, Year: m.Year, Overview: m.Overview,
			Genres: m.Genres, Directors: m.Directors, Actors: m.Actors,
		}
	}
	batch, err := json.Marshal(movies)
	if err != nil {
		return "", fmt.Errorf("oracle: marshal movie batch: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Category rules:\n%s\n\n", req.Prompt)
	fmt.Fprintf(&b, "Confidence threshold: %.2f\n", req.ConfidenceThreshold)
	if len(req.IncludeExamples) > 0 {
		fmt.Fprintf(&b, "Known good examples: %s\n", strings.Join(req.IncludeExamples, ", "))
	}
	if len(req.ExcludeExamples) > 0 {
		fmt.Fprintf(&b, "Known bad examples: %s\n", strings.Join(req.ExcludeExamples, ", "))
	}
	fmt.Fprintf(&b, "\nMovies:\n%s\n", batch)
	return b.String(), nil
}
