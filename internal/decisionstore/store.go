// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package decisionstore persists the per-movie classification decisions and
// fingerprints that let the orchestrator tell which movies already have an
// up-to-date oracle verdict and which need to be reasked.
package decisionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/kai-classifier/internal/clock"
	"github.com/tomtom215/kai-classifier/internal/logging"
)

// stateFormatVersion is the schema version this binary writes. A state file
// carrying a different version is loaded as-is (no migration) with a
// warning logged, per the compatibility policy.
const stateFormatVersion = 1

// AppVersion is the kai-classifier release that wrote the state file,
// stamped into the document's version field. It is distinct from
// stateFormatVersion: this one identifies the writing binary, not the
// schema.
const AppVersion = "0.1.0"

const (
	maxChanges = 100
	maxErrors  = 50
	maxBackups = 5
)

// Decision is the oracle's verdict for one movie in one rubric category,
// together with the fingerprint of the movie data it was computed from.
type Decision struct {
	MovieID     int       `json:"movie_id"`
	Category    string    `json:"category"`
	Include     bool      `json:"include"`
	Confidence  float64   `json:"confidence"`
	Fingerprint string    `json:"fingerprint"`
	DecidedAt   time.Time `json:"decided_at"`
}

// ChangeEntry records one label mutation applied to the catalog.
type ChangeEntry struct {
	Timestamp time.Time `json:"timestamp"`
	MovieID   int       `json:"movie_id"`
	MovieName string    `json:"movie_name"`
	Category  string    `json:"category"`
	Action    string    `json:"action"` // "add" or "remove"
}

// ErrorEntry records one run-time error surfaced to the next summary.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context"`
	Message   string    `json:"message"`
}

// document is the on-disk shape of the state file.
type document struct {
	Version            string                          `json:"version"`
	StateFormatVersion int                            `json:"state_format_version"`
	LastUpdate         time.Time                       `json:"last_update"`
	Decisions          map[string]map[string]Decision  `json:"decisions"` // movie id (string) -> category -> Decision
	// MovieFingerprints tracks the most recently recorded fingerprint for a
	// movie across any category, independent of decisions. SetDecision
	// upserts it alongside the per-category decision.
	MovieFingerprints  map[string]string               `json:"movie_fingerprints"`
	Changes            []ChangeEntry                   `json:"changes"`
	Errors             []ErrorEntry                    `json:"errors"`
}

func newDocument() *document {
	return &document{
		Version:            AppVersion,
		StateFormatVersion: stateFormatVersion,
		Decisions:          make(map[string]map[string]Decision),
		MovieFingerprints:  make(map[string]string),
	}
}

// Store is the crash-safe, single-writer persisted decision state.
type Store struct {
	mu   sync.Mutex
	path string
	clk  clock.Clock
	doc  *document
}

// Open loads path into a Store. A missing path starts an empty store; an
// unreadable or corrupt path is recovered from the newest backup, or
// starts empty (with an error entry logged) if no backup exists either.
func Open(path string, clk clock.Clock) (*Store, error) {
	s := &Store{path: path, clk: clk}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = newDocument()
			return nil
		}
		return s.recoverFromBackup(fmt.Errorf("read state: %w", err))
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return s.recoverFromBackup(fmt.Errorf("parse state: %w", err))
	}
	if doc.Decisions == nil {
		doc.Decisions = make(map[string]map[string]Decision)
	}
	if doc.MovieFingerprints == nil {
		doc.MovieFingerprints = make(map[string]string)
	}
	if doc.StateFormatVersion != stateFormatVersion {
		logging.Ctx(context.Background()).Warn().
			Int("found_version", doc.StateFormatVersion).
			Int("expected_version", stateFormatVersion).
			Msg("state_format_version mismatch; loading as-is, no migration performed")
	}
	s.doc = &doc
	return nil
}

func (s *Store) recoverFromBackup(cause error) error {
	backups, err := s.listBackups()
	if err != nil || len(backups) == 0 {
		logging.Ctx(context.Background()).Error().Err(cause).Msg("state file unreadable and no backup exists; starting from empty state")
		s.doc = newDocument()
		s.doc.Errors = append(s.doc.Errors, ErrorEntry{
			Timestamp: s.now(),
			Context:   "state_load",
			Message:   "state file corrupt or unreadable, no backup available: " + cause.Error(),
		})
		return nil
	}

	newest := backups[0]
	data, err := os.ReadFile(newest)
	if err != nil {
		return fmt.Errorf("state corrupt (%v) and newest backup %s also unreadable: %w", cause, newest, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("state corrupt (%v) and newest backup %s also corrupt: %w", cause, newest, err)
	}
	if doc.Decisions == nil {
		doc.Decisions = make(map[string]map[string]Decision)
	}
	if doc.MovieFingerprints == nil {
		doc.MovieFingerprints = make(map[string]string)
	}
	logging.Ctx(context.Background()).Warn().Err(cause).Str("backup", newest).Msg("restored state from newest backup after load failure")
	s.doc = &doc
	return nil
}

func (s *Store) backupDir() string {
	return filepath.Join(filepath.Dir(s.path), "backups")
}

func (s *Store) listBackups() ([]string, error) {
	dir := s.backupDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *Store) now() time.Time {
	if s.clk != nil {
		return s.clk.Now()
	}
	return time.Now().UTC()
}

// Save atomically persists the current state to path and rotates a backup
// copy into the backups directory, keeping only the newest five.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	s.doc.LastUpdate = s.now()

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("decisionstore: marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("decisionstore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("decisionstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("decisionstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("decisionstore: fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("decisionstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("decisionstore: rename: %w", err)
	}

	if err := s.writeBackupLocked(data); err != nil {
		logging.Ctx(context.Background()).Warn().Err(err).Msg("state saved but backup rotation failed")
	}
	return nil
}

func (s *Store) writeBackupLocked(data []byte) error {
	dir := s.backupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("kometa_state_%s.json", s.now().Format("20060102T150405Z"))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return err
	}
	return s.pruneBackupsLocked()
}

func (s *Store) pruneBackupsLocked() error {
	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	for _, old := range backups[min(len(backups), maxBackups):] {
		if err := os.Remove(old); err != nil {
			logging.Ctx(context.Background()).Warn().Err(err).Str("backup", old).Msg("failed to prune old backup")
		}
	}
	return nil
}
