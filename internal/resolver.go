package internal

import (
	"github.com/Hanaasagi/builderr/pkg/diagparse"
)

// ResolveSpan maps a 1-based line and optional column (0 when absent) onto a
// span of buf. It reports false when there is no line to highlight, and
// returns an ErrOutOfRange error when buf has no such position.
//
// Without a column the whole line is used. With a column, a position touching
// a word resolves to that word, anything else (whitespace, punctuation) to the
// whole line.
func ResolveSpan(buf Buffer, line, column int) (Span, bool, error) {
	if line <= 0 {
		return Span{}, false, nil
	}

	if column <= 0 {
		point, err := buf.TextPoint(line-1, 0)
		if err != nil {
			return Span{}, false, err
		}
		return buf.FullLine(point), true, nil
	}

	point, err := buf.TextPoint(line-1, column-1)
	if err != nil {
		return Span{}, false, err
	}
	if buf.Classify(point).OnWord() {
		return buf.Word(point), true, nil
	}
	return buf.FullLine(point), true, nil
}

// resolveDiagnostic is ResolveSpan for a diagnostic
func resolveDiagnostic(buf Buffer, d diagparse.Diagnostic) (Span, bool, error) {
	return ResolveSpan(buf, d.Line, d.Column)
}
