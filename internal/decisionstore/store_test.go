// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package decisionstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time                  { return c.t }
func (c fixedClock) Sleep(time.Duration)              {}
func (c fixedClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

func newStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.json")
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := newStorePath(t)
	s, err := Open(path, fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Empty(t, s.Dump())
}

func TestSetAndGetDecisionRoundTrips(t *testing.T) {
	path := newStorePath(t)
	s, err := Open(path, fixedClock{t: time.Now()})
	require.NoError(t, err)

	s.SetDecision(Decision{MovieID: 42, Category: "film-noir", Include: true, Confidence: 0.9, Fingerprint: "abc"})

	d, ok := s.GetDecision(42, "film-noir")
	require.True(t, ok)
	assert.True(t, d.Include)
	assert.Equal(t, "abc", d.Fingerprint)

	_, ok = s.GetDecision(42, "heist")
	assert.False(t, ok)
}

func TestSaveThenOpenPersistsDecisions(t *testing.T) {
	path := newStorePath(t)
	clk := fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	s, err := Open(path, clk)
	require.NoError(t, err)
	s.SetDecision(Decision{MovieID: 7, Category: "heist", Include: false, Confidence: 0.2, Fingerprint: "xyz"})
	require.NoError(t, s.Save())

	reopened, err := Open(path, clk)
	require.NoError(t, err)
	d, ok := reopened.GetDecision(7, "heist")
	require.True(t, ok)
	assert.Equal(t, "xyz", d.Fingerprint)
}

func TestSaveWritesBoundedBackups(t *testing.T) {
	path := newStorePath(t)

	for i := 0; i < maxBackups+3; i++ {
		clk := fixedClock{t: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)}
		s, err := Open(path, clk)
		require.NoError(t, err)
		s.SetDecision(Decision{MovieID: i, Category: "x"})
		require.NoError(t, s.Save())
	}

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(path), "backups"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), maxBackups)
}

func TestRecoversFromBackupWhenStateFileCorrupt(t *testing.T) {
	path := newStorePath(t)
	clk := fixedClock{t: time.Now()}

	s, err := Open(path, clk)
	require.NoError(t, err)
	s.SetDecision(Decision{MovieID: 99, Category: "heist", Fingerprint: "good"})
	require.NoError(t, s.Save())

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	recovered, err := Open(path, clk)
	require.NoError(t, err)
	d, ok := recovered.GetDecision(99, "heist")
	require.True(t, ok)
	assert.Equal(t, "good", d.Fingerprint)
}

func TestChangeRingIsBounded(t *testing.T) {
	path := newStorePath(t)
	s, err := Open(path, fixedClock{t: time.Now()})
	require.NoError(t, err)

	for i := 0; i < maxChanges+10; i++ {
		s.LogChange(ChangeEntry{MovieID: i, Action: "add"})
	}
	assert.Len(t, s.Changes(), maxChanges)
}

func TestGetFingerprintIsMovieLevelAcrossCategories(t *testing.T) {
	path := newStorePath(t)
	s, err := Open(path, fixedClock{t: time.Now()})
	require.NoError(t, err)

	_, ok := s.GetFingerprint(42)
	assert.False(t, ok)

	s.SetDecision(Decision{MovieID: 42, Category: "film-noir", Fingerprint: "fp1"})
	fp, ok := s.GetFingerprint(42)
	require.True(t, ok)
	assert.Equal(t, "fp1", fp)

	// A later decision in a different category for the same movie updates
	// the movie-level fingerprint too.
	s.SetDecision(Decision{MovieID: 42, Category: "heist", Fingerprint: "fp2"})
	fp, ok = s.GetFingerprint(42)
	require.True(t, ok)
	assert.Equal(t, "fp2", fp)
}

func TestNewDocumentStampsVersion(t *testing.T) {
	path := newStorePath(t)
	s, err := Open(path, fixedClock{t: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, AppVersion, s.doc.Version)
}

func TestResetClearsState(t *testing.T) {
	path := newStorePath(t)
	s, err := Open(path, fixedClock{t: time.Now()})
	require.NoError(t, err)
	s.SetDecision(Decision{MovieID: 1, Category: "a"})
	s.LogChange(ChangeEntry{MovieID: 1, Action: "add"})

	s.Reset()

	assert.Empty(t, s.Dump())
	assert.Empty(t, s.Changes())
	_, ok := s.GetFingerprint(1)
	assert.False(t, ok)
}
