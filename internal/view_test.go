package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func setupTerminal(t *testing.T) (*TerminalView, tcell.SimulationScreen, *TextBuffer, string) {
	t.Helper()
	dir := t.TempDir()
	buf := NewTextBuffer(filepath.Join(dir, "foo.c"), sourceOfFooC)

	screen := tcell.NewSimulationScreen("UTF-8")
	tv := NewTerminalView(screen, []*TextBuffer{buf}, "red")
	tv.Attach(NewEngine(tv, testSettings(t)))
	tv.QueueBuild("foo.c:4:5: error: bad token\n", gccPattern, dir)

	if err := tv.Start(); err != nil {
		t.Fatalf("Failed to start terminal view: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(40, 10)
	tv.render()
	return tv, screen, buf, dir
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestRenderHighlightsDiagnostic(t *testing.T) {
	_, screen, _, _ := setupTerminal(t)

	// gutter is "4" plus two cells, then three spaces of indentation
	r, _, style, _ := screen.GetContent(6, 3)
	if r != 'b' {
		t.Fatalf("Expected 'b' at (6,3), got %q", r)
	}
	_, bg, _ := style.Decompose()
	if want := GetColor("red", "red").Tcell(); bg != want {
		t.Errorf("Expected background %v, got %v", want, bg)
	}

	_, _, plain, _ := screen.GetContent(6, 2)
	if _, bg, _ := plain.Decompose(); bg != tcell.ColorDefault {
		t.Errorf("Expected an unstyled cell outside the diagnostic, got %v", bg)
	}
}

func TestHideKeyClearsHighlight(t *testing.T) {
	tv, screen, _, _ := setupTerminal(t)

	if tv.HandleEvent(runeKey('h')) {
		t.Fatalf("Unexpected quit")
	}
	tv.render()

	_, _, style, _ := screen.GetContent(6, 3)
	if _, bg, _ := style.Decompose(); bg != tcell.ColorDefault {
		t.Errorf("Expected no highlight while hidden, got %v", bg)
	}
	if !strings.Contains(tv.screenText(), "hidden") {
		t.Errorf("Expected the status line to report hidden diagnostics")
	}
}

func TestJumpShowsPopup(t *testing.T) {
	tv, screen, buf, _ := setupTerminal(t)

	tv.HandleEvent(runeKey('n'))
	tv.render()

	offset, _ := buf.Cursor()
	if want, _ := buf.TextPoint(3, 3); offset != want {
		t.Errorf("Expected cursor at %d, got %d", want, offset)
	}
	if _, ok := tv.popup[buf]; !ok {
		t.Fatalf("Expected the popup after jumping onto a diagnostic")
	}
	if !strings.Contains(tv.screenText(), "error: bad token") {
		t.Errorf("Expected the message on screen:\n%s", tv.screenText())
	}

	_, _, style, _ := screen.GetContent(6, 3)
	if _, _, attrs := style.Decompose(); attrs&tcell.AttrReverse == 0 {
		t.Errorf("Expected the cursor cell reversed")
	}

	if tv.HandleEvent(key(tcell.KeyEscape)) {
		t.Errorf("Expected escape to close the popup first")
	}
	if _, ok := tv.popup[buf]; ok {
		t.Errorf("Expected the popup closed")
	}
	if !tv.HandleEvent(key(tcell.KeyEscape)) {
		t.Errorf("Expected a second escape to quit")
	}
}

func TestCursorMovementWraps(t *testing.T) {
	tv, _, buf, _ := setupTerminal(t)

	tv.HandleEvent(key(tcell.KeyLeft))
	if offset, _ := buf.Cursor(); offset != 0 {
		t.Errorf("Expected cursor to stay at 0, got %d", offset)
	}

	tv.HandleEvent(key(tcell.KeyDown))
	tv.HandleEvent(key(tcell.KeyDown))
	tv.HandleEvent(key(tcell.KeyLeft))
	want, _ := buf.TextPoint(1, 0)
	if offset, _ := buf.Cursor(); offset != want {
		t.Errorf("Expected cursor at end of the empty line %d, got %d", want, offset)
	}

	tv.HandleEvent(key(tcell.KeyRight))
	want, _ = buf.TextPoint(2, 0)
	if offset, _ := buf.Cursor(); offset != want {
		t.Errorf("Expected cursor wrapped to %d, got %d", want, offset)
	}
}

func TestAutoPopupToggle(t *testing.T) {
	tv, _, buf, _ := setupTerminal(t)

	tv.HandleEvent(runeKey('a'))
	if tv.engine.Visibility().AutoPopup {
		t.Fatalf("Expected auto-popup disabled")
	}

	tv.HandleEvent(runeKey('n'))
	if _, ok := tv.popup[buf]; ok {
		t.Errorf("Expected no automatic popup")
	}

	tv.HandleEvent(key(tcell.KeyEnter))
	if _, ok := tv.popup[buf]; !ok {
		t.Errorf("Expected enter to show the message")
	}
}

func TestSettingsEventAppliesSettings(t *testing.T) {
	tv, _, buf, _ := setupTerminal(t)

	settings := testSettings(t)
	settings.Rules = settings.Rules[1:]
	tv.HandleEvent(&settingsEvent{settings: settings})

	if _, ok := buf.Overlay(OverlayKey(1)); ok {
		t.Errorf("Expected the stale category cleared")
	}
	if _, ok := buf.Overlay(OverlayKey(0)); !ok {
		t.Errorf("Expected the diagnostic in the only remaining category")
	}
	if got := tv.status[buf][infoStatusKey]; got != "configuration reloaded" {
		t.Errorf("Unexpected status %q", got)
	}
}

func TestWatchConfigPostsSettings(t *testing.T) {
	tv, screen, _, dir := setupTerminal(t)
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("default_color = \"red\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stop := tv.WatchConfig(path, 10*time.Millisecond, func(string) (Settings, error) {
		return DefaultSettings(), nil
	})
	defer stop()

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	received := make(chan bool, 1)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				received <- false
				return
			}
			if _, ok := ev.(*settingsEvent); ok {
				received <- true
				return
			}
		}
	}()

	select {
	case ok := <-received:
		if !ok {
			t.Errorf("Screen closed before the reload arrived")
		}
	case <-time.After(5 * time.Second):
		t.Errorf("Timed out waiting for the reload event")
	}
}

func TestHideDropsMessage(t *testing.T) {
	tv, _, buf, _ := setupTerminal(t)

	tv.HandleEvent(runeKey('n'))
	if _, ok := tv.status[buf][statusKey]; !ok {
		t.Fatalf("Expected the message in the status line")
	}

	tv.HandleEvent(runeKey('h'))
	tv.HandleEvent(key(tcell.KeyDown))
	if got, ok := tv.status[buf][statusKey]; ok {
		t.Errorf("Expected the message dropped, got %q", got)
	}
	if _, ok := tv.popup[buf]; ok {
		t.Errorf("Expected no popup while hidden")
	}
}

func TestQueuedCommandsRunAfterBuild(t *testing.T) {
	dir := t.TempDir()
	buf := NewTextBuffer(filepath.Join(dir, "foo.c"), sourceOfFooC)

	screen := tcell.NewSimulationScreen("UTF-8")
	tv := NewTerminalView(screen, []*TextBuffer{buf}, "red")
	tv.Attach(NewEngine(tv, testSettings(t)))
	tv.QueueBuild("foo.c:4:5: error: bad token\n", gccPattern, dir)
	tv.QueueCommand(HideDiagnostics)
	tv.QueueCommand(DisableAutoPopup)

	if err := tv.Start(); err != nil {
		t.Fatalf("Failed to start terminal view: %v", err)
	}
	t.Cleanup(screen.Fini)

	if got := tv.engine.Visibility(); got.Shown || got.AutoPopup {
		t.Errorf("Expected hidden diagnostics and no auto-popup, got %+v", got)
	}
	if tv.engine.Store().Snapshot().Len() != 1 {
		t.Errorf("Expected the build ingested before the commands")
	}
	if len(buf.Overlays()) != 0 {
		t.Errorf("Expected no overlays while hidden, got %v", buf.Overlays())
	}
}
