// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package fingerprint computes a deterministic content digest of a movie's
// classification-relevant fields, used by the decision store to detect when
// a movie needs to be re-evaluated by the oracle.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Movie is the minimal set of fields the fingerprint depends on. Callers
// pass a projection of their own catalog movie type.
type Movie struct {
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Directors []string `json:"directors"`
	Actors   []string `json:"actors"`
}

// canonical is the stable, sorted-array shape that gets hashed. Field order
// here is fixed by struct declaration order, and json.Marshal on a struct
// (unlike a map) preserves that order, which is what makes the encoding
// reproducible across runs and implementations.
type canonical struct {
	Title     string   `json:"title"`
	Year      int      `json:"year"`
	Overview  string   `json:"overview"`
	Genres    []string `json:"genres"`
	Directors []string `json:"directors"`
	Actors    []string `json:"actors"`
}

// maxActors bounds the actor list to the first five, per spec.
const maxActors = 5

// Compute returns the hex-encoded SHA-256 digest of m's canonical encoding.
// Title, year, and overview are taken verbatim (the catalog is assumed
// consistent for those); genres, directors, and the top-5 actors are sorted
// so that permutations of the same set produce the same fingerprint.
func Compute(m Movie) string {
	c := canonical{
		Title:     m.Title,
		Year:      m.Year,
		Overview:  m.Overview,
		Genres:    sortedCopy(m.Genres),
		Directors: sortedCopy(m.Directors),
		Actors:    sortedCopy(truncate(m.Actors, maxActors)),
	}

	// json.Marshal on a struct with no map fields already produces no
	// insignificant whitespace and a fixed key order; nothing further is
	// needed to make this a canonical encoding.
	data, err := json.Marshal(c)
	if err != nil {
		// Compute is documented as pure and total; the only failure mode
		// for this struct shape would be an unsupported type, which never
		// occurs here.
		panic("fingerprint: unexpected marshal failure: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func truncate(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}
