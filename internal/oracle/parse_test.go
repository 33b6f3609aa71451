// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strictJSON = `{"category_name":"heist","decisions":[{"movie_id":1,"title":"Heat","include":true,"confidence":0.92,"reasoning":"classic heist"}]}`

func TestParseDecisionsStrictPath(t *testing.T) {
	v, err := parseDecisions(strictJSON)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.True(t, v[0].Include)
	assert.Equal(t, 1, v[0].MovieID)
}

func TestParseDecisionsStripsProsePreamble(t *testing.T) {
	raw := "Sure, here is my analysis of the batch:\n\n" + strictJSON
	v, err := parseDecisions(raw)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.Equal(t, 0.92, v[0].Confidence)
}

func TestParseDecisionsStripsCodeFence(t *testing.T) {
	raw := "Here you go:\n```json\n" + strictJSON + "\n```\nLet me know if you need more."
	v, err := parseDecisions(raw)
	require.NoError(t, err)
	require.Len(t, v, 1)
}

func TestParseDecisionsBraceBalanceStopsAtFirstCompleteObject(t *testing.T) {
	raw := strictJSON + "\n\nNote: I am {fairly confident} about this."
	v, err := parseDecisions(raw)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.True(t, v[0].Include)
}

func TestParseDecisionsFailsOnTotalGarbage(t *testing.T) {
	_, err := parseDecisions("this is not json at all")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseDecisionsFailsOnEmptyDecisions(t *testing.T) {
	_, err := parseDecisions(`{"category_name":"heist","decisions":[]}`)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
