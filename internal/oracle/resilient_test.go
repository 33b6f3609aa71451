// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantClock struct{}

func (instantClock) Now() time.Time      { return time.Unix(0, 0) }
func (instantClock) Sleep(time.Duration) {}
func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0)
	return ch
}

type fakeOracle struct {
	failuresBeforeSuccess int
	fatal                 bool
	calls                 int
}

func (f *fakeOracle) Classify(ctx context.Context, req Request) (Response, error) {
	f.calls++
	if f.fatal {
		return Response{}, &FatalError{Cause: assertErr("bad request")}
	}
	if f.calls <= f.failuresBeforeSuccess {
		return Response{}, &TransientError{Cause: assertErr("rate limited")}
	}
	return Response{Verdicts: []Verdict{{MovieID: 1, Include: true}}, Usage: Usage{InputTokens: 10, OutputTokens: 5, RequestCount: 1}}, nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestResilientClassifyRetriesTransient(t *testing.T) {
	fake := &fakeOracle{failuresBeforeSuccess: 3}
	rc := NewResilientClient(fake, instantClock{})

	resp, err := rc.Classify(context.Background(), Request{Category: "heist"})
	require.NoError(t, err)
	require.Len(t, resp.Verdicts, 1)
	assert.Equal(t, 4, fake.calls)
}

func TestResilientClassifyStopsOnFatalError(t *testing.T) {
	fake := &fakeOracle{fatal: true}
	rc := NewResilientClient(fake, instantClock{})

	_, err := rc.Classify(context.Background(), Request{Category: "heist"})
	assert.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}
