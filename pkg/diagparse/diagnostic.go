package diagparse

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Diagnostic is a single record extracted from build output.
// Line and Column are 1-based; zero means the value was absent or not a number.
// File is the case-folded key buffers are matched on, Path keeps the original
// spelling and is what gets opened and printed.
type Diagnostic struct {
	File     string
	Path     string
	Line     int
	Column   int
	Message  string
	Category int
}

// HasLine reports whether the diagnostic points at a line
func (d Diagnostic) HasLine() bool {
	return d.Line > 0
}

// HasColumn reports whether the diagnostic points at a column
func (d Diagnostic) HasColumn() bool {
	return d.Column > 0
}

// WithCategory returns a copy of d assigned to category index
func (d Diagnostic) WithCategory(index int) Diagnostic {
	d.Category = index
	return d
}

// Location returns the path to open for d
func (d Diagnostic) Location() string {
	if d.Path != "" {
		return d.Path
	}
	return d.File
}

// String returns a string representation of the diagnostic
func (d Diagnostic) String() string {
	var loc strings.Builder
	loc.WriteString(d.Location())
	if d.HasLine() {
		fmt.Fprintf(&loc, ":%d", d.Line)
		if d.HasColumn() {
			fmt.Fprintf(&loc, ":%d", d.Column)
		}
	}
	return fmt.Sprintf("%s: %s", loc.String(), d.Message)
}

// NormalizePath turns name into the absolute, case-folded form used to match
// diagnostics against open buffers. Relative names are resolved against
// baseDir, or the working directory when baseDir is empty.
func NormalizePath(name, baseDir string) string {
	return fold(AbsolutePath(name, baseDir))
}

// AbsolutePath resolves name like NormalizePath but keeps its case
func AbsolutePath(name, baseDir string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if !filepath.IsAbs(name) {
		if baseDir != "" {
			name = filepath.Join(baseDir, name)
		}
		if abs, err := filepath.Abs(name); err == nil {
			name = abs
		}
	}
	return filepath.Clean(name)
}

func fold(path string) string {
	if path == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(path))
}
