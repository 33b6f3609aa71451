// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package decisionstore

import "strconv"

// GetDecision returns the stored decision for movieID in category, if any.
func (s *Store) GetDecision(movieID int, category string) (Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats, ok := s.doc.Decisions[key(movieID)]
	if !ok {
		return Decision{}, false
	}
	d, ok := cats[category]
	return d, ok
}

// GetDecisionsForMovie returns every stored category decision for movieID.
func (s *Store) GetDecisionsForMovie(movieID int) map[string]Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats, ok := s.doc.Decisions[key(movieID)]
	if !ok {
		return nil
	}
	out := make(map[string]Decision, len(cats))
	for k, v := range cats {
		out[k] = v
	}
	return out
}

// GetFingerprint returns the most recently recorded fingerprint for
// movieID, independent of category, or false if no decision has ever been
// set for that movie.
func (s *Store) GetFingerprint(movieID int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.doc.MovieFingerprints[key(movieID)]
	return fp, ok
}

// SetDecision records or replaces the decision for movieID/category, and
// upserts movieID's movie-level fingerprint to match.
func (s *Store) SetDecision(d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(d.MovieID)
	if s.doc.Decisions[k] == nil {
		s.doc.Decisions[k] = make(map[string]Decision)
	}
	s.doc.Decisions[k][d.Category] = d
	s.doc.MovieFingerprints[k] = d.Fingerprint
}

// Reset clears all decisions, changes, and errors, keeping the file's
// identity (it is still saved to the same path on the next Save).
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = newDocument()
}

// Dump returns a defensive copy of every decision currently on file, keyed
// by movie ID.
func (s *Store) Dump() map[int]map[string]Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]map[string]Decision, len(s.doc.Decisions))
	for k, cats := range s.doc.Decisions {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		copied := make(map[string]Decision, len(cats))
		for c, d := range cats {
			copied[c] = d
		}
		out[id] = copied
	}
	return out
}

func key(movieID int) string {
	return strconv.Itoa(movieID)
}
