// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/kai-classifier/internal/scheduler"
)

// Validate checks that required configuration is present and well-formed.
// It is called before anything the configuration would drive touches the
// catalog or the oracle, so a bad config fails fast and mutates nothing.
func (c *Config) Validate() error {
	if err := c.validateRadarr(); err != nil {
		return err
	}
	if err := c.validateClaude(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return c.validatePaths()
}

func (c *Config) validateRadarr() error {
	if c.Radarr.URL == "" {
		return fmt.Errorf("RADARR_URL is required")
	}
	if err := validateHTTPURL(c.Radarr.URL, "RADARR_URL"); err != nil {
		return err
	}
	if c.Radarr.APIKey == "" {
		return fmt.Errorf("RADARR_API_KEY is required")
	}
	return nil
}

func (c *Config) validateClaude() error {
	if c.Claude.APIKey == "" {
		return fmt.Errorf("CLAUDE_API_KEY is required")
	}
	if c.Claude.Model == "" {
		return fmt.Errorf("CLAUDE_MODEL is required")
	}
	return nil
}

// validateSMTP only applies when a report delivery address has been
// configured; a classifier run with no recipients never needs a relay.
func (c *Config) validateSMTP() error {
	if len(c.Notification.Recipients) == 0 {
		return nil
	}
	if c.SMTP.Server == "" {
		return fmt.Errorf("SMTP_SERVER is required when NOTIFICATION_RECIPIENTS is set")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	if c.SMTP.UseTLS && c.SMTP.UseSSL {
		return fmt.Errorf("SMTP_USE_TLS and SMTP_USE_SSL are mutually exclusive")
	}
	if c.Notification.From == "" {
		return fmt.Errorf("NOTIFICATION_FROM is required when NOTIFICATION_RECIPIENTS is set")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := scheduler.ParseInterval(c.Schedule.Interval); err != nil {
		return fmt.Errorf("SCHEDULE_INTERVAL is invalid: %w", err)
	}
	if _, err := scheduler.ParseWallClock(c.Schedule.StartTime); err != nil {
		return fmt.Errorf("SCHEDULE_START_TIME is invalid: %w", err)
	}
	if c.Schedule.TZ == "" {
		return fmt.Errorf("TZ is required")
	}
	if _, err := time.LoadLocation(c.Schedule.TZ); err != nil {
		return fmt.Errorf("TZ is invalid: %w", err)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.RubricDir == "" {
		return fmt.Errorf("RUBRIC_DIR is required")
	}
	if c.StateFile == "" {
		return fmt.Errorf("STATE_FILE is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	return nil
}
