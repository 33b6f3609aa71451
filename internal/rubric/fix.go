// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package rubric

import (
	"fmt"
	"os"
	"strings"
)

// FixTaglist rewrites the radarr_taglist scalar for category name inside
// path so that it matches expected, leaving every other byte of the file
// untouched. It returns false if the category or its radarr_taglist line
// could not be located.
func FixTaglist(path, name, expected string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	nl := "\n"
	raw := string(data)
	trailingNewline := strings.HasSuffix(raw, nl)
	lines := strings.Split(strings.TrimSuffix(raw, nl), nl)

	nameLine := -1
	for i, l := range lines {
		key, _, hasColon := splitKeyValue(l)
		if hasColon && key == name {
			nameLine = i
			break
		}
	}
	if nameLine < 0 {
		return false, nil
	}

	tagLine, _, found := findRadarrTaglist(lines, nameLine+1)
	if !found {
		return false, nil
	}

	indent := leadingWhitespace(lines[tagLine])
	lines[tagLine] = fmt.Sprintf("%sradarr_taglist: %s", indent, expected)

	out := strings.Join(lines, nl)
	if trailingNewline {
		out += nl
	}
	return true, os.WriteFile(path, []byte(out), 0o644)
}

func leadingWhitespace(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}
