// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package planner

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/aquasecurity/table"

	"github.com/tomtom215/kai-classifier/internal/oracle"
)

// SweepResult is the cost-per-item measured for one candidate batch size.
type SweepResult struct {
	BatchSize    int
	ItemCount    int
	CostPerItem  float64
	TotalCost    float64
}

// Sweep issues one real oracle batch per candidate size, each holding the
// first size movies of req.Movies (all of them when size exceeds their
// number), and records cost-per-item as reported by the oracle. cmd/kai
// fills req.Movies with placeholder movies that carry only an id and a
// "sample-N" title, not real catalog entries.
// This costs real money per call and is never invoked automatically.
func Sweep(ctx context.Context, client oracle.Client, req oracle.Request, sizes []int) ([]SweepResult, error) {
	results := make([]SweepResult, 0, len(sizes))
	for _, size := range sizes {
		sample := req
		if size < len(req.Movies) {
			sample.Movies = req.Movies[:size]
		}
		if len(sample.Movies) == 0 {
			continue
		}

		resp, err := client.Classify(ctx, sample)
		if err != nil {
			return results, err
		}

		results = append(results, SweepResult{
			BatchSize:   size,
			ItemCount:   len(sample.Movies),
			CostPerItem: resp.Usage.EstimatedCost / float64(len(sample.Movies)),
			TotalCost:   resp.Usage.EstimatedCost,
		})
	}
	return results, nil
}

// RenderSweep writes results as a table to w.
func RenderSweep(w io.Writer, results []SweepResult) {
	t := table.New(w)
	t.SetHeaders("Batch Size", "Items", "Total Cost", "Cost/Item")
	for _, r := range results {
		t.AddRow(
			strconv.Itoa(r.BatchSize),
			strconv.Itoa(r.ItemCount),
			dollars(r.TotalCost),
			dollars(r.CostPerItem),
		)
	}
	t.Render()
}

func dollars(v float64) string {
	return fmt.Sprintf("$%.4f", v)
}
