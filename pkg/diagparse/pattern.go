package diagparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// ErrInvalidPattern is returned by Compile when the capture pattern cannot be
// used to extract diagnostics.
var ErrInvalidPattern = errors.New("invalid diagnostic pattern")

// Shape is the capture-group layout of a compiled pattern, fixed at compile time.
type Shape int

const (
	// ThreeGroup captures file, line and message.
	ThreeGroup Shape = 3
	// FourGroup captures file, line, column and message.
	FourGroup Shape = 4
)

func (s Shape) String() string {
	switch s {
	case ThreeGroup:
		return "file,line,message"
	case FourGroup:
		return "file,line,column,message"
	}
	return "unknown"
}

// Pattern is a compiled capture pattern for build output
type Pattern struct {
	source  string
	re      *regexp.Regexp
	shape   Shape
	baseDir string
}

// Option configures a Pattern
type Option func(*Pattern)

// WithBaseDir sets the directory relative file names are resolved against.
// An empty dir means the process working directory.
func WithBaseDir(dir string) Option {
	return func(p *Pattern) {
		p.baseDir = dir
	}
}

// Compile compiles a capture pattern. The pattern must have exactly three or
// four capturing groups; anything else fails with ErrInvalidPattern.
// Line anchors (^ and $) match at every line of the scanned text.
func Compile(source string, opts ...Option) (*Pattern, error) {
	re, err := regexp.Compile("(?m)" + source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	var shape Shape
	switch n := re.NumSubexp(); n {
	case 3:
		shape = ThreeGroup
	case 4:
		shape = FourGroup
	default:
		return nil, fmt.Errorf("%w: expected 3 or 4 capture groups, got %d", ErrInvalidPattern, n)
	}

	p := &Pattern{
		source: source,
		re:     re,
		shape:  shape,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Source returns the pattern as it was given to Compile
func (p *Pattern) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Shape returns the group layout of the pattern
func (p *Pattern) Shape() Shape {
	if p == nil {
		return 0
	}
	return p.shape
}

// Parse extracts every diagnostic in text, in match order. A nil pattern
// yields no diagnostics, so callers can keep a failed Compile result and
// still call Parse.
func (p *Pattern) Parse(text string) []Diagnostic {
	if p == nil || text == "" {
		return nil
	}

	all := p.re.FindAllStringSubmatchIndex(text, -1)
	if len(all) == 0 {
		return nil
	}

	diagnostics := make([]Diagnostic, 0, len(all))
	for _, indices := range all {
		if d, ok := p.record(text, indices); ok {
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}

func (p *Pattern) record(text string, indices []int) (Diagnostic, bool) {
	group := func(i int) (string, bool) {
		start, end := indices[2*i], indices[2*i+1]
		if start < 0 || end < 0 {
			return "", false
		}
		return text[start:end], true
	}

	message, ok := group(int(p.shape))
	message = strings.TrimRight(message, "\r")
	if !ok || message == "" {
		return Diagnostic{}, false
	}

	file, _ := group(1)
	file = lastLine(file)
	if strings.TrimSpace(file) == "" {
		return Diagnostic{}, false
	}

	path := AbsolutePath(file, p.baseDir)
	d := Diagnostic{
		File:    fold(path),
		Path:    path,
		Message: message,
	}
	if s, ok := group(2); ok {
		d.Line = parsePosition(s)
	}
	if p.shape == FourGroup {
		if s, ok := group(3); ok {
			d.Column = parsePosition(s)
		}
	}
	return d, true
}

// lastLine keeps the last physical line of s. Greedy patterns sometimes pull
// preceding output lines into the file group.
func lastLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// parsePosition returns the positive integer in s, or 0 when s is not one.
func parsePosition(s string) int {
	u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	n, err := safecast.Conv[int](u)
	if err != nil {
		return 0
	}
	return n
}

// IsInvalidPattern reports whether err came from a rejected capture pattern
func IsInvalidPattern(err error) bool {
	return errors.Is(err, ErrInvalidPattern)
}
