package internal

import (
	"log/slog"
	"strings"

	"github.com/leaanthony/go-ansi-parser"
)

// TextProcessor turns raw build output into the plain text patterns run on
type TextProcessor interface {
	Process(text string) (string, error)
}

// PlainTextProcessor passes text through unchanged
type PlainTextProcessor struct{}

// NewPlainTextProcessor creates a new plain text processor
func NewPlainTextProcessor() *PlainTextProcessor {
	return &PlainTextProcessor{}
}

func (p *PlainTextProcessor) Process(text string) (string, error) {
	return text, nil
}

// StyledTextProcessor removes ANSI escape sequences, as emitted by compilers
// with colored diagnostics, line by line
type StyledTextProcessor struct{}

// NewStyledTextProcessor creates a new styled text processor
func NewStyledTextProcessor() *StyledTextProcessor {
	return &StyledTextProcessor{}
}

// Process cleanses every line. A line the parser rejects is kept as is so
// column numbers on the other lines stay intact.
func (s *StyledTextProcessor) Process(text string) (string, error) {
	lines := strings.Split(text, "\n")
	var failed error
	for i, line := range lines {
		if !strings.Contains(line, "\x1b") {
			continue
		}
		plain, err := ansi.Cleanse(line)
		if err != nil {
			failed = err
			continue
		}
		lines[i] = plain
	}
	return strings.Join(lines, "\n"), failed
}

// CreateTextProcessor selects the processor for text
func CreateTextProcessor(text string) TextProcessor {
	if strings.Contains(text, "\x1b") {
		return NewStyledTextProcessor()
	}
	return NewPlainTextProcessor()
}

// PrepareOutput returns build output ready for pattern matching
func PrepareOutput(text string) string {
	processor := CreateTextProcessor(text)
	plain, err := processor.Process(text)
	if err != nil {
		slog.Warn("some output lines kept their escape sequences", "error", err)
	}
	return plain
}
