// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package reporter renders a run summary into an email body and delivers
// it over SMTP, per the notification policy (always, on-change-only, or
// on-errors-only).
package reporter

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aquasecurity/table"

	"github.com/tomtom215/kai-classifier/internal/orchestrator"
	"github.com/tomtom215/kai-classifier/internal/smtp"
)

// Policy controls whether a run summary is worth emailing at all.
type Policy struct {
	NotifyOnNoChanges bool
	NotifyOnErrorsOnly bool
}

// ShouldNotify reports whether summary warrants sending a report, per p.
func (p Policy) ShouldNotify(summary orchestrator.RunSummary) bool {
	hasErrors := len(summary.Errors) > 0
	if p.NotifyOnErrorsOnly {
		return hasErrors
	}
	if hasErrors {
		return true
	}
	if p.NotifyOnNoChanges {
		return true
	}
	return hasAnyChange(summary)
}

func hasAnyChange(summary orchestrator.RunSummary) bool {
	for _, c := range summary.Categories {
		if len(c.Added) > 0 || len(c.Removed) > 0 {
			return true
		}
	}
	return false
}

// Delivery describes where to send a rendered report.
type Delivery struct {
	From      string
	To        []string
	ReplyTo   string
	NextRunAt time.Time
}

// Deliver renders summary and sends it through sender, per policy. It is
// a no-op (returning nil) when policy says the run isn't worth reporting.
func Deliver(ctx context.Context, sender *smtp.Sender, policy Policy, delivery Delivery, summary orchestrator.RunSummary) error {
	if !policy.ShouldNotify(summary) {
		return nil
	}

	body := Render(summary, delivery.NextRunAt)
	return sender.Send(ctx, smtp.Message{
		From:    delivery.From,
		To:      delivery.To,
		ReplyTo: delivery.ReplyTo,
		Subject: subjectFor(summary),
		Body:    body,
	})
}

func subjectFor(summary orchestrator.RunSummary) string {
	if len(summary.Errors) > 0 {
		return fmt.Sprintf("kai-classifier run completed with %d error(s)", len(summary.Errors))
	}
	if !hasAnyChange(summary) {
		return "kai-classifier run completed: no changes"
	}
	return "kai-classifier run completed"
}

// Render formats summary as a plain-text report, with a per-category
// add/remove table, token usage and cost, the run's errors, and the
// schedule's next activation. Errors are listed one per line in the order
// they were recorded; they are not grouped by context.
func Render(summary orchestrator.RunSummary, nextRunAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "kai-classifier run report\n")
	fmt.Fprintf(&b, "started:  %s\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "finished: %s\n", summary.FinishedAt.Format(time.RFC3339))
	if summary.DryRun {
		b.WriteString("mode:     dry-run (no labels were changed)\n")
	}
	fmt.Fprintf(&b, "cost:     $%.4f\n", summary.TotalCostUSD)
	if !nextRunAt.IsZero() {
		fmt.Fprintf(&b, "next run: %s\n", nextRunAt.Format(time.RFC3339))
	}
	b.WriteString("\n")

	var tbl bytes.Buffer
	t := table.New(&tbl)
	t.SetHeaders("Category", "Added", "Removed", "Classified", "Reused", "Tokens In", "Tokens Out", "Cost")
	for _, c := range summary.Categories {
		t.AddRow(
			c.Category,
			fmt.Sprintf("%d", len(c.Added)),
			fmt.Sprintf("%d", len(c.Removed)),
			fmt.Sprintf("%d", c.Classified),
			fmt.Sprintf("%d", c.Reused),
			fmt.Sprintf("%d", c.InputTokens),
			fmt.Sprintf("%d", c.OutputTokens),
			fmt.Sprintf("$%.4f", c.CostUSD),
		)
	}
	t.Render()
	b.Write(tbl.Bytes())
	b.WriteString("\n")

	for _, c := range summary.Categories {
		if len(c.Added) == 0 && len(c.Removed) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", c.Category)
		for _, title := range c.Added {
			fmt.Fprintf(&b, "  + %s\n", title)
		}
		for _, title := range c.Removed {
			fmt.Fprintf(&b, "  - %s\n", title)
		}
		b.WriteString("\n")
	}

	if len(summary.Errors) > 0 {
		b.WriteString("errors:\n")
		for _, e := range summary.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		b.WriteString("\n")
	}

	if len(summary.Diagnostics) > 0 {
		b.WriteString("rubric diagnostics:\n")
		for _, d := range summary.Diagnostics {
			fmt.Fprintf(&b, "  - %s\n", d.String())
		}
	}

	return b.String()
}
