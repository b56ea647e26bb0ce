// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     report
// Description: Golden file comparison for parser output
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// GoldenExt is the extension of expected-output files
const GoldenExt = ".expected"

// GoldenResult describes a comparison against a golden file
type GoldenResult struct {
	Path  string
	Found bool
	Match bool
	// Line is the first differing line (1-based), 0 on match
	Line     int
	Expected string
	Actual   string
}

// Describe renders a one-line explanation of a mismatch
func (g GoldenResult) Describe() string {
	if !g.Found || g.Match {
		return ""
	}
	return fmt.Sprintf("output differs from %s at line %d: expected %q, got %q",
		g.Path, g.Line, g.Expected, g.Actual)
}

// GoldenPath returns the golden file that belongs to a test input:
// tests/expr.txt -> tests/expr.expected
func GoldenPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + GoldenExt
}

// CompareGolden compares parser output with the golden file at path.
// Trailing whitespace per line and trailing blank lines are ignored.
// A missing golden file means no expectation and matches.
func CompareGolden(output string, path string) (GoldenResult, error) {
	res := GoldenResult{Path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		res.Match = true
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Found = true

	want := normalizeLines(string(data))
	got := normalizeLines(output)

	n := len(want)
	if len(got) > n {
		n = len(got)
	}
	for i := 0; i < n; i++ {
		var w, g string
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			g = got[i]
		}
		if w != g || i >= len(want) || i >= len(got) {
			res.Line = i + 1
			res.Expected = w
			res.Actual = g
			return res, nil
		}
	}

	res.Match = true
	return res, nil
}

func normalizeLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
