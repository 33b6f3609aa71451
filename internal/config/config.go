// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

// Package config holds all application configuration loaded from
// environment variables and an optional YAML config file, via Koanf v2's
// layered provider model: built-in defaults, then a config file, then
// environment variables (highest priority).
package config

// Config holds everything the classifier needs to run: catalog and oracle
// credentials, SMTP delivery, notification policy, the schedule, and
// process-local paths.
type Config struct {
	Radarr       RadarrConfig       `koanf:"radarr"`
	Claude       ClaudeConfig       `koanf:"claude"`
	Logging      LoggingConfig      `koanf:"logging"`
	SMTP         SMTPConfig         `koanf:"smtp"`
	Notification NotificationConfig `koanf:"notification"`
	Schedule     ScheduleConfig     `koanf:"schedule"`

	// BatchSize is the number of movies sent to the oracle per request.
	BatchSize int `koanf:"batch_size"`

	// KometaFixTags rewrites a rubric's radarr_taglist scalar to the
	// slug the system computes, when they disagree.
	KometaFixTags bool `koanf:"kometa_fix_tags"`

	// RubricDir is the directory of host YAML files carrying embedded
	// rubric blocks.
	RubricDir string `koanf:"rubric_dir"`

	// StateFile is the path to the decision store's JSON state file.
	StateFile string `koanf:"state_file"`
}

// RadarrConfig is the external catalog's connection details.
type RadarrConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// ClaudeConfig is the classification oracle's connection details.
type ClaudeConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Debug bool `koanf:"debug"`
}

// SMTPConfig is the mail relay used to deliver run reports.
type SMTPConfig struct {
	Server   string `koanf:"server"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	UseTLS   bool   `koanf:"use_tls"`
	UseSSL   bool   `koanf:"use_ssl"`
}

// NotificationConfig controls who gets the run report and when.
type NotificationConfig struct {
	Recipients   []string `koanf:"recipients"`
	From         string   `koanf:"from"`
	ReplyTo      string   `koanf:"reply_to"`
	OnNoChanges  bool     `koanf:"on_no_changes"`
	OnErrorsOnly bool     `koanf:"on_errors_only"`
}

// ScheduleConfig is the periodic run schedule.
type ScheduleConfig struct {
	Interval  string `koanf:"interval"`   // e.g. "1d", "6h", "2w"
	StartTime string `koanf:"start_time"` // "HH:MM"
	TZ        string `koanf:"tz"`
}

// defaultConfig returns sensible defaults, overridden by a config file and
// then environment variables.
func defaultConfig() *Config {
	return &Config{
		Claude: ClaudeConfig{
			Model: "claude-sonnet-4-5",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Schedule: ScheduleConfig{
			Interval:  "1d",
			StartTime: "03:00",
			TZ:        "UTC",
		},
		BatchSize: 150,
		RubricDir: "/config/rubrics",
		StateFile: "/config/kai-classifier-state.json",
	}
}
