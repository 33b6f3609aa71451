// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *RadarrClient) {
	t.Helper()
	mux := http.NewServeMux()

	tags := []radarrTag{{ID: 1, Label: "KAI-film-noir"}}
	movies := []radarrMovie{{ID: 1, Title: "Chinatown", Year: 1974, Genres: []string{"drama"}, Tags: []int{1}}}

	mux.HandleFunc("/api/v3/tag", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(tags)
		case http.MethodPost:
			var t radarrTag
			_ = json.NewDecoder(r.Body).Decode(&t)
			t.ID = 2
			tags = append(tags, t)
			_ = json.NewEncoder(w).Encode(t)
		}
	})
	mux.HandleFunc("/api/v3/movie", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(movies)
	})
	mux.HandleFunc("/api/v3/movie/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(movies[0])
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewRadarrClient(srv.URL, "test-key")
}

func TestListMoviesResolvesTagNames(t *testing.T) {
	_, client := newTestServer(t)
	movies, err := client.ListMovies(t.Context())
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Chinatown", movies[0].Title)
	assert.Equal(t, []string{"KAI-film-noir"}, movies[0].Labels)
}

func TestEnsureLabelReturnsExistingLabel(t *testing.T) {
	_, client := newTestServer(t)
	l, err := client.EnsureLabel(t.Context(), "KAI-film-noir")
	require.NoError(t, err)
	assert.Equal(t, 1, l.ID)
}

func TestEnsureLabelCreatesMissingLabel(t *testing.T) {
	_, client := newTestServer(t)
	l, err := client.EnsureLabel(t.Context(), "KAI-heist")
	require.NoError(t, err)
	assert.Equal(t, "KAI-heist", l.Name)
}

func TestHTTPErrorRetryableClassification(t *testing.T) {
	assert.True(t, (&HTTPError{StatusCode: 503}).Retryable())
	assert.True(t, (&HTTPError{StatusCode: http.StatusTooManyRequests}).Retryable())
	assert.False(t, (&HTTPError{StatusCode: 404}).Retryable())
}
