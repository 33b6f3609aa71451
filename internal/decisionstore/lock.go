// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package decisionstore

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock is an advisory exclusive file lock that enforces a single writer
// against the state file for the lifetime of one orchestrator run.
type Lock struct {
	f *os.File
}

// AcquireLock opens (creating if necessary) the lock file at path (callers
// pass a sibling of the state file, e.g. "<state>.lock") and takes a
// non-blocking exclusive flock on it. A second process racing
// to acquire the same lock gets an error immediately rather than blocking,
// so a stuck run fails fast instead of queueing silently.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("decisionstore: open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("decisionstore: another run already holds the lock at %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the flock and closes the underlying file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
