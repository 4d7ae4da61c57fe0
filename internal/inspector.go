package internal

import (
	"strings"

	"github.com/Hanaasagi/builderr/pkg/diagparse"
	"github.com/mattn/go-runewidth"
)

const (
	statusKey     = "build_errors"
	popupEllipsis = "…"
)

// FindAt returns the first diagnostic of view, in parse order, whose span
// contains offset. Diagnostics that cannot be resolved in view are skipped.
func (e *Engine) FindAt(view View, offset int) (diagparse.Diagnostic, bool) {
	if view == nil || view.Path() == "" {
		return diagparse.Diagnostic{}, false
	}

	path := diagparse.NormalizePath(view.Path(), "")
	for _, d := range e.store.ForFile(path) {
		span, ok, err := resolveDiagnostic(view, d)
		if err != nil || !ok {
			continue
		}
		if span.Contains(offset) {
			return d, true
		}
	}
	return diagparse.Diagnostic{}, false
}

// NextSpan returns the first resolvable diagnostic span of view starting
// after offset, wrapping around to the first span of the file
func (e *Engine) NextSpan(view View, offset int) (Span, bool) {
	if view == nil || view.Path() == "" {
		return Span{}, false
	}

	var first, next Span
	var haveFirst, haveNext bool
	path := diagparse.NormalizePath(view.Path(), "")
	for _, d := range e.store.ForFile(path) {
		span, ok, err := resolveDiagnostic(view, d)
		if err != nil || !ok {
			continue
		}
		if !haveFirst || span.Start < first.Start {
			first, haveFirst = span, true
		}
		if span.Start > offset && (!haveNext || span.Start < next.Start) {
			next, haveNext = span, true
		}
	}

	if haveNext {
		return next, true
	}
	return first, haveFirst
}

func (e *Engine) diagnosticUnderCursor(view View) (diagparse.Diagnostic, bool) {
	offset, ok := view.Cursor()
	if !ok {
		return diagparse.Diagnostic{}, false
	}
	return e.FindAt(view, offset)
}

// present pushes the rendered message to the status line and a popup
func (e *Engine) present(view View, d diagparse.Diagnostic) {
	popup := RenderPopup(d, e.settings)
	e.host.SetStatus(view, statusKey, popup.Text)
	e.host.ShowPopup(view, popup)
}

// RenderPopup substitutes the message into the configured template. The
// message is split at its first line break; with PopupTruncate only the
// first line is used ($1), otherwise both parts ($1 and $2).
func RenderPopup(d diagparse.Diagnostic, settings Settings) Popup {
	first, rest, _ := strings.Cut(d.Message, "\n")

	var text string
	if settings.PopupTruncate {
		text = strings.ReplaceAll(settings.PopupTemplate, "$1", first)
	} else {
		text = strings.NewReplacer("$1", first, "$2", rest).Replace(settings.PopupTemplateExtended)
	}

	return Popup{
		Text:      text,
		MaxWidth:  settings.PopupMaxWidth,
		MaxHeight: settings.PopupMaxHeight,
	}
}

// Lines splits the popup text into display lines clipped to MaxWidth cells
// and MaxHeight lines. Non-positive bounds mean unbounded.
func (p Popup) Lines() []string {
	lines := strings.Split(strings.TrimRight(p.Text, "\n"), "\n")

	if p.MaxWidth > 0 {
		for i, line := range lines {
			lines[i] = runewidth.Truncate(line, p.MaxWidth, popupEllipsis)
		}
	}

	if p.MaxHeight > 0 && len(lines) > p.MaxHeight {
		lines = lines[:p.MaxHeight]
		lines[len(lines)-1] = popupEllipsis
	}
	return lines
}

// Width returns the widest display line in cells
func (p Popup) Width() int {
	width := 0
	for _, line := range p.Lines() {
		width = max(width, runewidth.StringWidth(line))
	}
	return width
}
