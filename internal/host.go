package internal

import (
	"errors"
	"fmt"

	"github.com/Hanaasagi/builderr/pkg/classify"
)

// ErrOutOfRange is returned when a (line, column) pair does not exist in a buffer
var ErrOutOfRange = errors.New("position out of range")

// Span is a half-open byte range [Start, End) of a buffer's text
type Span struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside the span
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// CharClass describes the position of an offset relative to words
type CharClass uint8

const (
	ClassWordStart CharClass = 1 << iota
	ClassWordEnd
	// ClassWordInner marks an offset with word characters on both sides.
	ClassWordInner

	ClassOther CharClass = 0
)

// OnWord reports whether the offset touches a word
func (c CharClass) OnWord() bool {
	return c&(ClassWordStart|ClassWordEnd|ClassWordInner) != 0
}

// Buffer is the read side of a host text buffer.
// Lines and columns given to TextPoint are 0-based; columns count runes.
type Buffer interface {
	// Path is the backing file name, empty for scratch buffers.
	Path() string
	Text() string
	TextPoint(line, column int) (int, error)
	Classify(offset int) CharClass
	Word(offset int) Span
	FullLine(offset int) Span
}

// OverlayStyle is what a host needs to draw one overlay group
type OverlayStyle struct {
	classify.Style
	Key string
}

// View is an open buffer that can carry overlays
type View interface {
	Buffer
	// Cursor returns the caret offset, false when there is no selection.
	Cursor() (int, bool)
	SetOverlay(key string, spans []Span, style OverlayStyle)
	ClearOverlay(key string)
}

// Popup is rendered diagnostic text bounded by MaxWidth x MaxHeight cells
type Popup struct {
	Text      string
	MaxWidth  int
	MaxHeight int
}

// Host is the editing surface the engine drives
type Host interface {
	Views() []View
	SetStatus(view View, key, text string)
	ClearStatus(view View, key string)
	ShowPopup(view View, popup Popup)
	HidePopup(view View)
}
