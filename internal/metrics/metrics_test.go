// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOracleTokensTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(OracleTokensTotal.WithLabelValues("input", "film-noir"))
	OracleTokensTotal.WithLabelValues("input", "film-noir").Add(42)
	after := testutil.ToFloat64(OracleTokensTotal.WithLabelValues("input", "film-noir"))
	assert.Equal(t, before+42, after)
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, 0.0, StateToFloat("closed"))
	assert.Equal(t, 1.0, StateToFloat("half-open"))
	assert.Equal(t, 2.0, StateToFloat("open"))
	assert.Equal(t, -1.0, StateToFloat("bogus"))
}

func TestReconcileChangesTotalLabeled(t *testing.T) {
	ReconcileChangesTotal.WithLabelValues("heist", "add").Inc()
	v := testutil.ToFloat64(ReconcileChangesTotal.WithLabelValues("heist", "add"))
	assert.GreaterOrEqual(t, v, 1.0)
}
