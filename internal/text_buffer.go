package internal

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Overlay is one named group of styled spans attached to a buffer
type Overlay struct {
	Key   string
	Spans []Span
	Style OverlayStyle
}

// TextBuffer is an in-memory buffer that implements View
type TextBuffer struct {
	path       string
	text       string
	lineStarts []int // byte offset of every line start

	cursor    int
	hasCursor bool

	overlays map[string]Overlay
}

// NewTextBuffer creates a buffer over text. path may be empty for scratch buffers.
func NewTextBuffer(path, text string) *TextBuffer {
	tb := &TextBuffer{
		path:     path,
		overlays: make(map[string]Overlay),
	}
	tb.SetText(text)
	return tb
}

// LoadTextBuffer reads path from disk into a new buffer
func LoadTextBuffer(path string) (*TextBuffer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewTextBuffer(path, string(content)), nil
}

// Reload replaces the content with the file on disk
func (tb *TextBuffer) Reload() error {
	if tb.path == "" {
		return nil
	}
	content, err := os.ReadFile(tb.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", tb.path, err)
	}
	tb.SetText(string(content))
	return nil
}

// SetText replaces the content. The cursor is clamped, overlays are left for
// the next refresh to replace.
func (tb *TextBuffer) SetText(text string) {
	tb.text = text
	tb.lineStarts = tb.lineStarts[:0]
	tb.lineStarts = append(tb.lineStarts, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			tb.lineStarts = append(tb.lineStarts, i+1)
		}
	}
	if tb.cursor > len(text) {
		tb.cursor = len(text)
	}
}

func (tb *TextBuffer) Path() string {
	return tb.path
}

func (tb *TextBuffer) Text() string {
	return tb.text
}

// LineCount returns the number of lines, counting the empty line after a
// trailing newline
func (tb *TextBuffer) LineCount() int {
	return len(tb.lineStarts)
}

// Line returns line row without its line break
func (tb *TextBuffer) Line(row int) string {
	if row < 0 || row >= len(tb.lineStarts) {
		return ""
	}
	start, end := tb.lineBounds(row)
	return strings.TrimSuffix(tb.text[start:end], "\n")
}

// lineBounds returns the byte range of row including its line break
func (tb *TextBuffer) lineBounds(row int) (int, int) {
	start := tb.lineStarts[row]
	end := len(tb.text)
	if row+1 < len(tb.lineStarts) {
		end = tb.lineStarts[row+1]
	}
	return start, end
}

// TextPoint converts a 0-based line and rune column into a byte offset. The
// column may point one past the last character of the line.
func (tb *TextBuffer) TextPoint(line, column int) (int, error) {
	if line < 0 || line >= len(tb.lineStarts) || column < 0 {
		return 0, fmt.Errorf("%w: line %d column %d", ErrOutOfRange, line+1, column+1)
	}

	offset := tb.lineStarts[line]
	content := tb.Line(line)
	for i := 0; i < column; i++ {
		if len(content) == 0 {
			return 0, fmt.Errorf("%w: line %d column %d", ErrOutOfRange, line+1, column+1)
		}
		_, size := utf8.DecodeRuneInString(content)
		content = content[size:]
		offset += size
	}
	return offset, nil
}

// RowCol converts a byte offset into a 0-based row and rune column
func (tb *TextBuffer) RowCol(offset int) (int, int) {
	offset = max(0, min(offset, len(tb.text)))
	row := sort.Search(len(tb.lineStarts), func(i int) bool {
		return tb.lineStarts[i] > offset
	}) - 1
	col := utf8.RuneCountInString(tb.text[tb.lineStarts[row]:offset])
	return row, col
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (tb *TextBuffer) wordBefore(offset int) bool {
	if offset <= 0 || offset > len(tb.text) {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(tb.text[:offset])
	return isWordRune(r)
}

func (tb *TextBuffer) wordAt(offset int) bool {
	if offset < 0 || offset >= len(tb.text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tb.text[offset:])
	return isWordRune(r)
}

// Classify reports the word boundary class of offset
func (tb *TextBuffer) Classify(offset int) CharClass {
	before, at := tb.wordBefore(offset), tb.wordAt(offset)
	switch {
	case at && !before:
		return ClassWordStart
	case before && !at:
		return ClassWordEnd
	case before && at:
		return ClassWordInner
	}
	return ClassOther
}

// Word expands offset to the word touching it. An offset away from any word
// yields an empty span at offset.
func (tb *TextBuffer) Word(offset int) Span {
	offset = max(0, min(offset, len(tb.text)))
	start, end := offset, offset
	for tb.wordBefore(start) {
		_, size := utf8.DecodeLastRuneInString(tb.text[:start])
		start -= size
	}
	for tb.wordAt(end) {
		_, size := utf8.DecodeRuneInString(tb.text[end:])
		end += size
	}
	return Span{Start: start, End: end}
}

// FullLine expands offset to its line, including the line break
func (tb *TextBuffer) FullLine(offset int) Span {
	row, _ := tb.RowCol(offset)
	start, end := tb.lineBounds(row)
	return Span{Start: start, End: end}
}

// Cursor returns the caret offset
func (tb *TextBuffer) Cursor() (int, bool) {
	return tb.cursor, tb.hasCursor
}

// SetCursor places the caret at offset
func (tb *TextBuffer) SetCursor(offset int) {
	tb.cursor = max(0, min(offset, len(tb.text)))
	tb.hasCursor = true
}

func (tb *TextBuffer) SetOverlay(key string, spans []Span, style OverlayStyle) {
	tb.overlays[key] = Overlay{
		Key:   key,
		Spans: append([]Span(nil), spans...),
		Style: style,
	}
}

func (tb *TextBuffer) ClearOverlay(key string) {
	delete(tb.overlays, key)
}

// Overlay returns the overlay stored under key
func (tb *TextBuffer) Overlay(key string) (Overlay, bool) {
	o, ok := tb.overlays[key]
	return o, ok
}

// Overlays returns all overlays ordered by key
func (tb *TextBuffer) Overlays() []Overlay {
	result := make([]Overlay, 0, len(tb.overlays))
	for _, o := range tb.overlays {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return overlayLess(result[i].Key, result[j].Key)
	})
	return result
}

// String returns the buffer text
func (tb *TextBuffer) String() string {
	return tb.text
}
