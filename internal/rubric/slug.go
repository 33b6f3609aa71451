// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package rubric

import (
	"regexp"
	"strings"
)

// LabelPrefix is the namespace the system owns on catalog labels.
const LabelPrefix = "KAI-"

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
	dupHyphen = regexp.MustCompile(`-+`)
)

// Slug lowercases name, replaces runs of non-alphanumeric characters with a
// single hyphen, and trims leading/trailing hyphens. It is idempotent:
// Slug(Slug(s)) == Slug(s).
func Slug(name string) string {
	s := strings.ToLower(name)
	s = nonAlnum.ReplaceAllString(s, "-")
	s = dupHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ExpectedLabel returns the catalog label a rubric named name must carry.
func ExpectedLabel(name string) string {
	return LabelPrefix + Slug(name)
}
