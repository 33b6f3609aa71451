// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/config/kai-classifier.yaml",
	"/config/kai-classifier.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds a Config from three layered sources, in ascending priority:
//
//  1. Defaults: built-in sensible defaults
//  2. Config File: an optional YAML file, if one is found
//  3. Environment Variables: overrides anything above
//
// It then validates the result and returns an error without mutating
// anything external if validation fails.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, preferring an explicit
// CONFIG_PATH override over the default search paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists koanf paths that should be parsed as
// comma-separated lists when they arrive as a plain environment string.
var sliceConfigPaths = []string{
	"notification.recipients",
}

// processSliceFields converts comma-separated string values into slices for
// known slice fields, since environment variables always arrive as strings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings carries the handful of environment variable names required
// by the deployment convention that don't follow the SECTION_FIELD
// pattern the default transform otherwise derives.
var envMappings = map[string]string{
	"DEBUG_LOGGING":         "logging.debug",
	"NOTIFY_ON_NO_CHANGES":  "notification.on_no_changes",
	"NOTIFY_ON_ERRORS_ONLY": "notification.on_errors_only",
	"TZ":                    "schedule.tz",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Most names follow SECTION_FIELD -> section.field (e.g. RADARR_URL ->
// radarr.url); a few legacy names are mapped explicitly via envMappings.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	key = strings.ToLower(key)

	switch {
	case strings.HasPrefix(key, "radarr_"):
		return "radarr." + strings.TrimPrefix(key, "radarr_")
	case strings.HasPrefix(key, "claude_"):
		return "claude." + strings.TrimPrefix(key, "claude_")
	case strings.HasPrefix(key, "smtp_"):
		return "smtp." + strings.TrimPrefix(key, "smtp_")
	case strings.HasPrefix(key, "notification_"):
		return "notification." + strings.TrimPrefix(key, "notification_")
	case strings.HasPrefix(key, "schedule_"):
		return "schedule." + strings.TrimPrefix(key, "schedule_")
	case key == "batch_size":
		return "batch_size"
	case key == "kometa_fix_tags":
		return "kometa_fix_tags"
	case key == "rubric_dir":
		return "rubric_dir"
	case key == "state_file":
		return "state_file"
	default:
		return key
	}
}
