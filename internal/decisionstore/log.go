// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package decisionstore

// LogChange appends a change entry, dropping the oldest entry once the
// ring exceeds maxChanges.
func (s *Store) LogChange(c ChangeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Timestamp = s.now()
	s.doc.Changes = append(s.doc.Changes, c)
	if len(s.doc.Changes) > maxChanges {
		s.doc.Changes = s.doc.Changes[len(s.doc.Changes)-maxChanges:]
	}
}

// LogError appends an error entry, dropping the oldest entry once the ring
// exceeds maxErrors.
func (s *Store) LogError(context, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Errors = append(s.doc.Errors, ErrorEntry{
		Timestamp: s.now(),
		Context:   context,
		Message:   message,
	})
	if len(s.doc.Errors) > maxErrors {
		s.doc.Errors = s.doc.Errors[len(s.doc.Errors)-maxErrors:]
	}
}

// Changes returns a copy of the bounded change ring.
func (s *Store) Changes() []ChangeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChangeEntry, len(s.doc.Changes))
	copy(out, s.doc.Changes)
	return out
}

// Errors returns a copy of the bounded error ring.
func (s *Store) Errors() []ErrorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ErrorEntry, len(s.doc.Errors))
	copy(out, s.doc.Errors)
	return out
}

// ClearChanges empties the change ring, typically after a summary has been
// delivered for them.
func (s *Store) ClearChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Changes = nil
}

// ClearErrors empties the error ring, typically after a summary has been
// delivered for them.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Errors = nil
}
