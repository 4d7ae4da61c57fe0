package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Hanaasagi/builderr/pkg/classify"
	"github.com/adrg/xdg"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const infoStatusKey = "builderr.info"

var iconRunes = map[string]rune{
	"dot":      '●',
	"circle":   '○',
	"bookmark": '▮',
	"cross":    '✗',
	"warning":  '!',
}

// settingsEvent carries reloaded settings into the event loop
type settingsEvent struct {
	tcell.EventTime
	settings Settings
}

// TerminalView is a tcell host showing one buffer at a time with its
// overlays, a status line and the diagnostic popup
type TerminalView struct {
	screen       tcell.Screen
	engine       *Engine
	buffers      []*TextBuffer
	active       int
	top          int
	defaultColor string

	status map[*TextBuffer]map[string]string
	popup  map[*TextBuffer]Popup

	pending  *Event
	commands []Command
}

// NewTerminalView creates a host over buffers drawing on screen
func NewTerminalView(screen tcell.Screen, buffers []*TextBuffer, defaultColor string) *TerminalView {
	return &TerminalView{
		screen:       screen,
		buffers:      buffers,
		defaultColor: defaultColor,
		status:       make(map[*TextBuffer]map[string]string),
		popup:        make(map[*TextBuffer]Popup),
	}
}

// Attach connects the engine that receives this host's events
func (tv *TerminalView) Attach(engine *Engine) {
	tv.engine = engine
}

// Active returns the buffer on screen
func (tv *TerminalView) Active() *TextBuffer {
	if len(tv.buffers) == 0 {
		return nil
	}
	return tv.buffers[tv.active]
}

func (tv *TerminalView) Views() []View {
	views := make([]View, len(tv.buffers))
	for i, b := range tv.buffers {
		views[i] = b
	}
	return views
}

func (tv *TerminalView) SetStatus(view View, key, text string) {
	tb, ok := view.(*TextBuffer)
	if !ok {
		return
	}
	if tv.status[tb] == nil {
		tv.status[tb] = make(map[string]string)
	}
	tv.status[tb][key] = text
}

func (tv *TerminalView) ClearStatus(view View, key string) {
	if tb, ok := view.(*TextBuffer); ok {
		delete(tv.status[tb], key)
	}
}

func (tv *TerminalView) ShowPopup(view View, popup Popup) {
	if tb, ok := view.(*TextBuffer); ok {
		tv.popup[tb] = popup
	}
}

func (tv *TerminalView) HidePopup(view View) {
	if tb, ok := view.(*TextBuffer); ok {
		delete(tv.popup, tb)
	}
}

// QueueBuild replays build output as a finished build once Start has
// announced the buffers
func (tv *TerminalView) QueueBuild(output, pattern, baseDir string) {
	tv.pending = &Event{Kind: BuildFinished, Output: output, Pattern: pattern, BaseDir: baseDir}
}

// QueueCommand runs cmd once Start has replayed the queued build
func (tv *TerminalView) QueueCommand(cmd Command) {
	tv.commands = append(tv.commands, cmd)
}

// Start initializes the screen and announces every buffer to the engine
func (tv *TerminalView) Start() error {
	if err := tv.screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	tv.screen.SetStyle(tcell.StyleDefault)
	tv.screen.Clear()

	for _, b := range tv.buffers {
		tv.engine.Dispatch(Event{Kind: BufferLoaded, View: b})
	}
	tv.activate(0)

	if tv.pending != nil {
		tv.engine.Dispatch(Event{Kind: BuildStarted})
		tv.engine.Dispatch(*tv.pending)
		tv.pending = nil
	}
	for _, cmd := range tv.commands {
		tv.runCommand(cmd)
	}
	tv.commands = nil
	return nil
}

// Run takes over the terminal until the user quits
func (tv *TerminalView) Run() error {
	if err := tv.Start(); err != nil {
		return err
	}
	defer tv.screen.Fini()

	renderStart := time.Now()
	tv.render()
	slog.Info("first render completed", "duration_ms", time.Since(renderStart).Milliseconds())

	for {
		ev := tv.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if tv.HandleEvent(ev) {
			return nil
		}
		tv.render()
	}
}

// HandleEvent processes one screen event and reports whether to quit
func (tv *TerminalView) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return tv.handleKey(ev)
	case *tcell.EventResize:
		tv.screen.Sync()
	case *settingsEvent:
		tv.engine.ApplySettings(ev.settings)
		tv.flash("configuration reloaded")
	case *tcell.EventError:
		return true
	}
	return false
}

// WatchConfig polls path every interval and posts settings produced by load
// into the event loop when the file changes. The returned func stops polling.
func (tv *TerminalView) WatchConfig(path string, interval time.Duration, load func(string) (Settings, error)) func() {
	done := make(chan struct{})

	modTime := func() time.Time {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}
		}
		return info.ModTime()
	}

	last := modTime()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				current := modTime()
				if current.Equal(last) {
					continue
				}
				last = current

				settings, err := load(path)
				if err != nil {
					slog.Warn("reloading configuration", "path", path, "error", err)
					continue
				}
				ev := &settingsEvent{settings: settings}
				ev.SetEventNow()
				if err := tv.screen.PostEvent(ev); err != nil {
					slog.Warn("posting configuration reload", "error", err)
				}
			}
		}
	}()

	return func() { close(done) }
}

func (tv *TerminalView) handleKey(ev *tcell.EventKey) bool {
	buf := tv.Active()
	if buf == nil {
		return true
	}

	_, height := tv.screen.Size()
	page := max(1, height-2)

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyEscape:
		if _, shown := tv.popup[buf]; !shown {
			return true
		}
		tv.HidePopup(buf)
	case tcell.KeyUp:
		tv.moveCursor(-1, 0)
	case tcell.KeyDown:
		tv.moveCursor(1, 0)
	case tcell.KeyLeft:
		tv.moveCursor(0, -1)
	case tcell.KeyRight:
		tv.moveCursor(0, 1)
	case tcell.KeyPgUp:
		tv.moveCursor(-page, 0)
	case tcell.KeyPgDn:
		tv.moveCursor(page, 0)
	case tcell.KeyTab:
		tv.activate((tv.active + 1) % len(tv.buffers))
	case tcell.KeyEnter:
		tv.runCommand(ShowCurrentMessage)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'h':
			if tv.engine.Visibility().Shown {
				tv.runCommand(HideDiagnostics)
			} else {
				tv.runCommand(ShowDiagnostics)
			}
		case 'a':
			if tv.engine.Visibility().AutoPopup {
				tv.runCommand(DisableAutoPopup)
			} else {
				tv.runCommand(EnableAutoPopup)
			}
		case 'n':
			tv.jumpToNext()
		case 'r':
			tv.reload()
		}
	}
	return false
}

func (tv *TerminalView) runCommand(cmd Command) {
	buf := tv.Active()
	if err := tv.engine.Run(cmd, buf); err != nil {
		tv.flash(err.Error())
		return
	}
	switch cmd {
	case EnableAutoPopup, DisableAutoPopup:
		tv.flash(cmd.String())
	}
}

// flash shows a one-off message on the status line of the active buffer
func (tv *TerminalView) flash(text string) {
	if buf := tv.Active(); buf != nil {
		tv.SetStatus(buf, infoStatusKey, text)
	}
}

func (tv *TerminalView) activate(index int) {
	if index < 0 || index >= len(tv.buffers) {
		return
	}
	tv.active = index
	tv.top = 0
	buf := tv.buffers[index]
	if _, ok := buf.Cursor(); !ok {
		buf.SetCursor(0)
	}
	tv.engine.Dispatch(Event{Kind: BufferActivated, View: buf})
}

func (tv *TerminalView) reload() {
	buf := tv.Active()
	if err := buf.Reload(); err != nil {
		slog.Warn("reloading buffer", "path", buf.Path(), "error", err)
		tv.flash(err.Error())
		return
	}
	tv.engine.Dispatch(Event{Kind: BufferContentSettled, View: buf})
	tv.flash("reloaded " + filepath.Base(buf.Path()))
}

// moveCursor moves the caret by rows and rune columns, wrapping columns
// across line ends
func (tv *TerminalView) moveCursor(dRow, dCol int) {
	buf := tv.Active()
	offset, _ := buf.Cursor()
	row, col := buf.RowCol(offset)

	row = max(0, min(row+dRow, buf.LineCount()-1))
	lineLen := utf8.RuneCountInString(buf.Line(row))
	col = min(col, lineLen) + dCol

	switch {
	case col < 0 && row > 0:
		row--
		col = utf8.RuneCountInString(buf.Line(row))
	case col < 0:
		col = 0
	case col > lineLen && row < buf.LineCount()-1:
		row++
		col = 0
	case col > lineLen:
		col = lineLen
	}

	point, err := buf.TextPoint(row, col)
	if err != nil {
		return
	}
	tv.setCursor(point)
}

func (tv *TerminalView) setCursor(offset int) {
	buf := tv.Active()
	buf.SetCursor(offset)
	tv.HidePopup(buf)
	tv.ClearStatus(buf, infoStatusKey)
	tv.engine.Dispatch(Event{Kind: SelectionChanged, View: buf})
}

func (tv *TerminalView) jumpToNext() {
	buf := tv.Active()
	offset, _ := buf.Cursor()
	span, ok := tv.engine.NextSpan(buf, offset)
	if !ok {
		tv.flash("no diagnostics in this file")
		return
	}
	tv.setCursor(span.Start)
}

// scroll keeps the cursor row inside a window of rows lines
func (tv *TerminalView) scroll(rows int) {
	buf := tv.Active()
	offset, _ := buf.Cursor()
	row, _ := buf.RowCol(offset)
	if row < tv.top {
		tv.top = row
	}
	if row >= tv.top+rows {
		tv.top = row - rows + 1
	}
}

// tcellStyle draws a category style in the given color
func tcellStyle(style classify.Style, c tcell.Color) tcell.Style {
	base := tcell.StyleDefault
	switch style.Display {
	case classify.DisplayNone:
		return base
	case classify.DisplayOutline:
		return base.Foreground(c).Bold(true)
	case classify.DisplaySolidUnderline:
		return base.Underline(tcell.UnderlineStyleSolid, c)
	case classify.DisplayStippledUnderline:
		return base.Underline(tcell.UnderlineStyleDotted, c)
	case classify.DisplaySquigglyUnderline:
		return base.Underline(tcell.UnderlineStyleCurly, c)
	}
	return base.Background(c).Foreground(tcell.ColorBlack)
}

func iconRune(icon string) (rune, bool) {
	if icon == "" {
		return 0, false
	}
	if r, ok := iconRunes[icon]; ok {
		return r, true
	}
	r, _ := utf8.DecodeRuneInString(icon)
	return r, r != utf8.RuneError
}

type drawnOverlay struct {
	Overlay
	color tcell.Color
	style tcell.Style
}

func (tv *TerminalView) drawnOverlays(buf *TextBuffer) []drawnOverlay {
	overlays := buf.Overlays()
	drawn := make([]drawnOverlay, len(overlays))
	for i, o := range overlays {
		c := GetColor(o.Style.Color, tv.defaultColor).Tcell()
		drawn[i] = drawnOverlay{Overlay: o, color: c, style: tcellStyle(o.Style.Style, c)}
	}
	return drawn
}

func styleAt(offset int, overlays []drawnOverlay) tcell.Style {
	for _, o := range overlays {
		for _, span := range o.Spans {
			if span.Contains(offset) {
				return o.style
			}
		}
	}
	return tcell.StyleDefault
}

func (tv *TerminalView) render() {
	tv.screen.Clear()
	width, height := tv.screen.Size()
	buf := tv.Active()
	if buf == nil || height < 2 {
		tv.screen.Show()
		return
	}

	textRows := height - 1
	tv.scroll(textRows)

	overlays := tv.drawnOverlays(buf)
	numberWidth := len(strconv.Itoa(buf.LineCount()))
	gutter := numberWidth + 2
	cursor, hasCursor := buf.Cursor()

	for y := 0; y < textRows; y++ {
		row := tv.top + y
		if row >= buf.LineCount() {
			break
		}
		start, end := buf.lineBounds(row)
		tv.drawGutter(y, row, numberWidth, start, end, overlays)

		line := buf.Line(row)
		x, col := gutter, 0
		for i, r := range line {
			offset := start + i
			style := styleAt(offset, overlays)
			if hasCursor && offset == cursor {
				style = style.Reverse(true)
			}
			w := cellWidth(r, col)
			if x+w > width {
				break
			}
			if r == '\t' {
				for k := 0; k < w; k++ {
					tv.screen.SetContent(x+k, y, ' ', nil, style)
				}
			} else {
				tv.screen.SetContent(x, y, r, nil, style)
			}
			x += w
			col += w
		}
		if hasCursor && cursor == start+len(line) && x < width {
			tv.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault.Reverse(true))
		}
	}

	tv.drawStatus(height-1, width, buf)
	tv.drawPopup(width, textRows, gutter, buf)

	if IsDebugMode() {
		tv.dumpSnapshot() // nolint
	}
	tv.screen.Show()
}

func (tv *TerminalView) drawGutter(y, row, numberWidth, start, end int, overlays []drawnOverlay) {
	number := fmt.Sprintf("%*d", numberWidth, row+1)
	dim := tcell.StyleDefault.Dim(true)
	for i, r := range number {
		tv.screen.SetContent(i, y, r, nil, dim)
	}

	for _, o := range overlays {
		icon, ok := iconRune(o.Style.Icon)
		if !ok {
			continue
		}
		for _, span := range o.Spans {
			if span.Start < end && span.End > start {
				tv.screen.SetContent(numberWidth, y, icon, nil, tcell.StyleDefault.Foreground(o.color))
				return
			}
		}
	}
}

func (tv *TerminalView) drawStatus(y, width int, buf *TextBuffer) {
	style := tcell.StyleDefault.Reverse(true)
	for x := 0; x < width; x++ {
		tv.screen.SetContent(x, y, ' ', nil, style)
	}

	name := buf.Path()
	if name == "" {
		name = "[scratch]"
	}
	visibility := tv.engine.Visibility()
	state := "shown"
	if !visibility.Shown {
		state = "hidden"
	}
	popup := "popup:on"
	if !visibility.AutoPopup {
		popup = "popup:off"
	}

	parts := []string{
		fmt.Sprintf(" %s [%d/%d]", filepath.Base(name), tv.active+1, len(tv.buffers)),
		state,
		popup,
	}

	keys := make([]string, 0, len(tv.status[buf]))
	for k := range tv.status[buf] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, strings.ReplaceAll(tv.status[buf][k], "\n", " "))
	}

	text := runewidth.Truncate(strings.Join(parts, " | "), width, popupEllipsis)
	x := 0
	for _, r := range text {
		tv.screen.SetContent(x, y, r, nil, style)
		x += cellWidth(r, x)
	}
}

func (tv *TerminalView) drawPopup(width, textRows, gutter int, buf *TextBuffer) {
	popup, ok := tv.popup[buf]
	if !ok {
		return
	}

	bounded := popup
	if bounded.MaxWidth <= 0 || bounded.MaxWidth > width-gutter-2 {
		bounded.MaxWidth = width - gutter - 2
	}
	if bounded.MaxHeight <= 0 || bounded.MaxHeight > textRows-2 {
		bounded.MaxHeight = textRows - 2
	}
	if bounded.MaxWidth <= 0 || bounded.MaxHeight <= 0 {
		return
	}

	lines := bounded.Lines()
	boxWidth := bounded.Width() + 2
	boxHeight := len(lines) + 2

	offset, _ := buf.Cursor()
	row, _ := buf.RowCol(offset)
	y := row - tv.top + 1
	if y+boxHeight > textRows {
		y = max(0, row-tv.top-boxHeight)
	}
	x := gutter

	border := tcell.StyleDefault.Foreground(tcell.ColorGray)
	body := tcell.StyleDefault
	for dy := 0; dy < boxHeight; dy++ {
		for dx := 0; dx < boxWidth; dx++ {
			r := ' '
			style := body
			switch {
			case dy == 0 && dx == 0:
				r, style = tcell.RuneULCorner, border
			case dy == 0 && dx == boxWidth-1:
				r, style = tcell.RuneURCorner, border
			case dy == boxHeight-1 && dx == 0:
				r, style = tcell.RuneLLCorner, border
			case dy == boxHeight-1 && dx == boxWidth-1:
				r, style = tcell.RuneLRCorner, border
			case dy == 0 || dy == boxHeight-1:
				r, style = tcell.RuneHLine, border
			case dx == 0 || dx == boxWidth-1:
				r, style = tcell.RuneVLine, border
			}
			tv.screen.SetContent(x+dx, y+dy, r, nil, style)
		}
	}

	for i, line := range lines {
		cx := x + 1
		for _, r := range line {
			tv.screen.SetContent(cx, y+1+i, r, nil, body)
			cx += cellWidth(r, cx-x-1)
		}
	}
}

// screenText returns the visible screen as text, one line per row
func (tv *TerminalView) screenText() string {
	width, height := tv.screen.Size()
	var sb strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; {
			r, _, _, w := tv.screen.GetContent(x, y)
			if r == 0 {
				r = ' '
			}
			sb.WriteRune(r)
			x += max(1, w)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (tv *TerminalView) dumpSnapshot() error {
	unixMilli := time.Now().UnixMilli()

	appDir := filepath.Join(xdg.StateHome, "builderr")
	filePath := filepath.Join(appDir, fmt.Sprintf("snapshot-%d.txt", unixMilli))

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close() // nolint

	_, err = f.WriteString(tv.screenText())
	return err
}
