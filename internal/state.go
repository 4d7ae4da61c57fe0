package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Hanaasagi/builderr/pkg/classify"
	"github.com/Hanaasagi/builderr/pkg/diagparse"
)

// Settings is the part of the user configuration the engine consults
type Settings struct {
	Rules                 []classify.Rule
	PopupTruncate         bool
	PopupTemplate         string
	PopupTemplateExtended string
	PopupMaxWidth         int
	PopupMaxHeight        int
}

// DefaultSettings returns settings with a single catch-all category
func DefaultSettings() Settings {
	return Settings{
		Rules: []classify.Rule{{
			Style: classify.Style{Color: "red", Display: classify.DisplayFill},
		}},
		PopupTemplate:         "$1",
		PopupTemplateExtended: "$1\n$2",
		PopupMaxWidth:         80,
		PopupMaxHeight:        12,
	}
}

// Visibility is the global display state. Both flags change only through
// explicit commands.
type Visibility struct {
	Shown     bool
	AutoPopup bool
}

// EventKind identifies a host notification
type EventKind int

const (
	BufferLoaded EventKind = iota
	BufferActivated
	BufferContentSettled
	SelectionChanged
	BuildStarted
	BuildFinished
)

var eventNames = []string{
	BufferLoaded:         "buffer-loaded",
	BufferActivated:      "buffer-activated",
	BufferContentSettled: "buffer-content-settled",
	SelectionChanged:     "selection-changed",
	BuildStarted:         "build-started",
	BuildFinished:        "build-finished",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is one host notification. Output, Pattern and BaseDir are only used
// by BuildFinished.
type Event struct {
	Kind    EventKind
	View    View
	Output  string
	Pattern string
	BaseDir string
}

// Engine owns the diagnostic store, the visibility state and the settings.
// It is not safe for concurrent use: the host must deliver events one at a time.
type Engine struct {
	host       Host
	store      *Store
	settings   Settings
	visibility Visibility
}

// NewEngine creates an engine that draws on host. Diagnostics start shown
// with auto-popup enabled.
func NewEngine(host Host, settings Settings) *Engine {
	return &Engine{
		host:     host,
		store:    NewStore(),
		settings: settings,
		visibility: Visibility{
			Shown:     true,
			AutoPopup: true,
		},
	}
}

// Store returns the diagnostic store
func (e *Engine) Store() *Store {
	return e.store
}

// Settings returns the active settings
func (e *Engine) Settings() Settings {
	return e.settings
}

// Visibility returns the current display state
func (e *Engine) Visibility() Visibility {
	return e.visibility
}

// ApplySettings installs reloaded settings, reclassifies the current
// diagnostics against the new rules and refreshes every view.
func (e *Engine) ApplySettings(settings Settings) {
	for _, view := range e.host.Views() {
		for i := range e.settings.Rules {
			view.ClearOverlay(OverlayKey(i))
		}
	}

	e.settings = settings
	current := e.store.Snapshot()
	if current.Len() > 0 {
		e.store.Replace(classifyAll(current.Diagnostics, settings.Rules))
	}
	slog.Info("settings applied", "categories", len(settings.Rules))
	e.RefreshAll()
}

// Ingest runs the build-finished pipeline: preprocess the output, parse it
// with pattern, classify and swap the store. An invalid pattern is logged,
// empties the store and is returned to the caller.
func (e *Engine) Ingest(output, pattern, baseDir string) (*Snapshot, error) {
	compiled, err := diagparse.Compile(pattern, diagparse.WithBaseDir(baseDir))
	if err != nil {
		slog.Warn("ignoring build output", "pattern", pattern, "error", err)
	} else {
		slog.Debug("pattern compiled", "source", compiled.Source(), "shape", compiled.Shape().String())
	}

	diagnostics := compiled.Parse(PrepareOutput(output))
	snapshot := e.store.Replace(classifyAll(diagnostics, e.settings.Rules))
	slog.Info("build output parsed", "generation", snapshot.Generation, "diagnostics", snapshot.Len())
	return snapshot, err
}

func classifyAll(diagnostics []diagparse.Diagnostic, rules []classify.Rule) []diagparse.Diagnostic {
	result := make([]diagparse.Diagnostic, len(diagnostics))
	for i, d := range diagnostics {
		result[i] = d.WithCategory(classify.Classify(d.Message, rules))
	}
	return result
}

// Dispatch handles one host event
func (e *Engine) Dispatch(ev Event) {
	slog.Debug("event", "kind", ev.Kind.String())

	switch ev.Kind {
	case BufferLoaded, BufferActivated, BufferContentSettled:
		e.Refresh(ev.View)
	case SelectionChanged:
		e.onSelectionChanged(ev.View)
	case BuildStarted:
		e.store.Clear()
		e.dismissAll()
		e.RefreshAll()
	case BuildFinished:
		// a rejected pattern leaves an empty store, Ingest already logged it
		e.Ingest(ev.Output, ev.Pattern, ev.BaseDir) // nolint: errcheck
		e.RefreshAll()
	}
}

func (e *Engine) onSelectionChanged(view View) {
	if view == nil {
		return
	}
	if !e.visibility.Shown || !e.visibility.AutoPopup {
		e.dismiss(view)
		return
	}

	d, ok := e.diagnosticUnderCursor(view)
	if !ok {
		e.dismiss(view)
		return
	}
	e.present(view, d)
}

// dismiss drops the message shown for view
func (e *Engine) dismiss(view View) {
	e.host.ClearStatus(view, statusKey)
	e.host.HidePopup(view)
}

func (e *Engine) dismissAll() {
	for _, view := range e.host.Views() {
		e.dismiss(view)
	}
}

// Command is a user command exposed to the host UI
type Command int

const (
	ShowDiagnostics Command = iota
	HideDiagnostics
	EnableAutoPopup
	DisableAutoPopup
	ShowCurrentMessage
)

var commandNames = []string{
	ShowDiagnostics:    "show-diagnostics",
	HideDiagnostics:    "hide-diagnostics",
	EnableAutoPopup:    "enable-auto-popup",
	DisableAutoPopup:   "disable-auto-popup",
	ShowCurrentMessage: "show-current-diagnostic-message",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[c]
}

// CommandNames lists the names ParseCommand accepts
func CommandNames() []string {
	return slices.Clone(commandNames)
}

// ParseCommand looks a command up by name
func ParseCommand(name string) (Command, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range commandNames {
		if n == name {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

// ErrCommandDisabled is returned by Run for a command that is not enabled
var ErrCommandDisabled = errors.New("command disabled")

// IsVisible reports whether the host should offer cmd for view
func (e *Engine) IsVisible(cmd Command, view View) bool {
	if cmd != ShowCurrentMessage {
		return true
	}
	if e.visibility.AutoPopup || view == nil {
		return false
	}
	_, ok := e.diagnosticUnderCursor(view)
	return ok
}

// IsEnabled reports whether cmd can run now
func (e *Engine) IsEnabled(cmd Command, view View) bool {
	switch cmd {
	case ShowDiagnostics:
		return !e.visibility.Shown
	case HideDiagnostics:
		return e.visibility.Shown
	case EnableAutoPopup:
		return !e.visibility.AutoPopup
	case DisableAutoPopup:
		return e.visibility.AutoPopup
	case ShowCurrentMessage:
		return e.IsVisible(cmd, view)
	}
	return false
}

// Run executes cmd against view
func (e *Engine) Run(cmd Command, view View) error {
	if !e.IsEnabled(cmd, view) {
		return fmt.Errorf("%s: %w", cmd, ErrCommandDisabled)
	}

	switch cmd {
	case ShowDiagnostics, HideDiagnostics:
		e.visibility.Shown = cmd == ShowDiagnostics
		if !e.visibility.Shown {
			e.dismissAll()
		}
		e.RefreshAll()
	case EnableAutoPopup, DisableAutoPopup:
		e.visibility.AutoPopup = cmd == EnableAutoPopup
		if !e.visibility.AutoPopup {
			e.dismissAll()
		}
	case ShowCurrentMessage:
		if d, ok := e.diagnosticUnderCursor(view); ok {
			e.present(view, d)
		}
	}
	slog.Debug("command", "name", cmd.String(), "shown", e.visibility.Shown, "auto_popup", e.visibility.AutoPopup)
	return nil
}
