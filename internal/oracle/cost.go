// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

// Pricing is the per-million-token cost of a model, supplied by the caller
// that constructs the client. cmd/kai passes a fixed rate compiled into the
// binary; it is not read from configuration, so a price change needs a
// new release.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// EstimateCost returns the dollar cost of a call that consumed the given
// input and output token counts.
func (p Pricing) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}
