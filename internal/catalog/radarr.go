// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RadarrClient talks to a Radarr instance's REST API (v3).
type RadarrClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRadarrClient returns a Radarr client with a 30-second request timeout.
func NewRadarrClient(baseURL, apiKey string) *RadarrClient {
	return &RadarrClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type radarrMovie struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Tags     []int    `json:"tags"`
	Credits  struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

type radarrTag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// ListMovies returns every movie in the Radarr library.
func (c *RadarrClient) ListMovies(ctx context.Context) ([]Movie, error) {
	var raw []radarrMovie
	if err := c.get(ctx, "/api/v3/movie", nil, &raw); err != nil {
		return nil, fmt.Errorf("catalog: list movies: %w", err)
	}

	tags, err := c.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list movies: resolve tags: %w", err)
	}
	tagNames := make(map[int]string, len(tags))
	for _, t := range tags {
		tagNames[t.ID] = t.Name
	}

	movies := make([]Movie, 0, len(raw))
	for _, m := range raw {
		labels := make([]string, 0, len(m.Tags))
		for _, id := range m.Tags {
			if name, ok := tagNames[id]; ok {
				labels = append(labels, name)
			}
		}

		var directors, actors []string
		for _, c := range m.Credits.Crew {
			if c.Job == "Director" {
				directors = append(directors, c.Name)
			}
		}
		for _, a := range m.Credits.Cast {
			actors = append(actors, a.Name)
		}

		movies = append(movies, Movie{
			ID:        m.ID,
			Title:     m.Title,
			Year:      m.Year,
			Overview:  m.Overview,
			Genres:    m.Genres,
			Directors: directors,
			Actors:    actors,
			Labels:    labels,
		})
	}
	return movies, nil
}

// ListLabels returns every tag defined in the Radarr instance.
func (c *RadarrClient) ListLabels(ctx context.Context) ([]Label, error) {
	var raw []radarrTag
	if err := c.get(ctx, "/api/v3/tag", nil, &raw); err != nil {
		return nil, fmt.Errorf("catalog: list tags: %w", err)
	}
	labels := make([]Label, len(raw))
	for i, t := range raw {
		labels[i] = Label{ID: t.ID, Name: t.Label}
	}
	return labels, nil
}

// GetLabelByName returns the tag matching name, if one exists.
func (c *RadarrClient) GetLabelByName(ctx context.Context, name string) (Label, bool, error) {
	labels, err := c.ListLabels(ctx)
	if err != nil {
		return Label{}, false, err
	}
	for _, l := range labels {
		if l.Name == name {
			return l, true, nil
		}
	}
	return Label{}, false, nil
}

// EnsureLabel returns the tag named name, creating it if it does not
// already exist. Creation is idempotent: a concurrent creator racing to
// the same name is tolerated by re-reading the tag list on conflict.
func (c *RadarrClient) EnsureLabel(ctx context.Context, name string) (Label, error) {
	if existing, ok, err := c.GetLabelByName(ctx, name); err != nil {
		return Label{}, err
	} else if ok {
		return existing, nil
	}

	body, err := json.Marshal(radarrTag{Label: name})
	if err != nil {
		return Label{}, fmt.Errorf("catalog: marshal tag: %w", err)
	}

	var created radarrTag
	if err := c.post(ctx, "/api/v3/tag", body, &created); err != nil {
		if existing, ok, lookupErr := c.GetLabelByName(ctx, name); lookupErr == nil && ok {
			return existing, nil
		}
		return Label{}, fmt.Errorf("catalog: create tag %q: %w", name, err)
	}
	return Label{ID: created.ID, Name: created.Label}, nil
}

// SetMovieLabels replaces movieID's full tag set with labelIDs.
func (c *RadarrClient) SetMovieLabels(ctx context.Context, movieID int, labelIDs []int) error {
	var m radarrMovie
	if err := c.get(ctx, fmt.Sprintf("/api/v3/movie/%d", movieID), nil, &m); err != nil {
		return fmt.Errorf("catalog: load movie %d: %w", movieID, err)
	}
	m.Tags = labelIDs

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("catalog: marshal movie %d: %w", movieID, err)
	}
	if err := c.put(ctx, fmt.Sprintf("/api/v3/movie/%d", movieID), body, nil); err != nil {
		return fmt.Errorf("catalog: update movie %d: %w", movieID, err)
	}
	return nil
}

func (c *RadarrClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *RadarrClient) post(ctx context.Context, path string, body []byte, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *RadarrClient) put(ctx context.Context, path string, body []byte, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *RadarrClient) do(ctx context.Context, method, path string, query url.Values, body []byte, out interface{}) error {
	u := c.baseURL + path
	if query != nil {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Path: path}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// HTTPError is returned when Radarr responds with a non-2xx status. Callers
// use it to tell transient (5xx, 429) failures from permanent (4xx) ones.
type HTTPError struct {
	StatusCode int
	Path       string
}

func (e *HTTPError) Error() string {
	return "catalog: " + e.Path + ": unexpected status " + strconv.Itoa(e.StatusCode)
}

// Retryable reports whether the status code represents a transient failure
// worth retrying (server errors and rate limiting).
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
