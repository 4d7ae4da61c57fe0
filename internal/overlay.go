package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Hanaasagi/builderr/pkg/diagparse"
)

const overlayKeyPrefix = "build_errors_"

// OverlayKey returns the overlay group name of a category
func OverlayKey(category int) string {
	return overlayKeyPrefix + strconv.Itoa(category)
}

// overlayLess orders overlay keys by category index, other keys by name
func overlayLess(a, b string) bool {
	ai, aerr := strconv.Atoi(strings.TrimPrefix(a, overlayKeyPrefix))
	bi, berr := strconv.Atoi(strings.TrimPrefix(b, overlayKeyPrefix))
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// Refresh recomputes every category overlay of view from the store. Views
// without a backing file are left alone.
func (e *Engine) Refresh(view View) {
	if view == nil || view.Path() == "" {
		return
	}

	rules := e.settings.Rules
	if !e.visibility.Shown {
		for i := range rules {
			view.ClearOverlay(OverlayKey(i))
		}
		return
	}

	path := diagparse.NormalizePath(view.Path(), "")
	spans := make([][]Span, len(rules))
	unresolved := 0

	for _, d := range e.store.ForFile(path) {
		if d.Category < 0 || d.Category >= len(rules) {
			continue
		}
		span, ok, err := resolveDiagnostic(view, d)
		if err != nil {
			if !errors.Is(err, ErrOutOfRange) {
				slog.Warn("resolving diagnostic", "diagnostic", d.String(), "error", err)
			}
			unresolved++
			continue
		}
		if !ok {
			continue
		}
		spans[d.Category] = append(spans[d.Category], span)
	}

	for i, rule := range rules {
		key := OverlayKey(i)
		if len(spans[i]) == 0 {
			view.ClearOverlay(key)
			continue
		}
		view.SetOverlay(key, spans[i], OverlayStyle{Style: rule.Style, Key: key})
		slog.Debug("overlay set", "key", key, "spans", describeSpans(spans[i]))
	}

	slog.Debug("view refreshed", "path", path, "categories", len(rules), "unresolved", unresolved)
}

// RefreshAll refreshes every open view
func (e *Engine) RefreshAll() {
	for _, view := range e.host.Views() {
		e.Refresh(view)
	}
}

// describeSpans is used in debug output
func describeSpans(spans []Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%d spans %s", len(spans), strings.Join(parts, " "))
}
