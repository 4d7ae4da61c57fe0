package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Hanaasagi/builderr/cmd"
	"github.com/Hanaasagi/builderr/internal"
	"github.com/Hanaasagi/builderr/pkg/diagparse"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type parseOptions struct {
	*rootOptions
	color   string
	context bool
}

// batchHost is a Host without open views, used for one-shot parsing
type batchHost struct{}

func (batchHost) Views() []internal.View                  { return nil }
func (batchHost) SetStatus(internal.View, string, string) {}
func (batchHost) ClearStatus(internal.View, string)       {}
func (batchHost) ShowPopup(internal.View, internal.Popup) {}
func (batchHost) HidePopup(internal.View)                 {}

func newParseCommand(root *rootOptions) *cobra.Command {
	opts := &parseOptions{rootOptions: root}

	parseCmd := &cobra.Command{
		Use:     "parse [BUILD_LOG]",
		Short:   "Parse build output and print the diagnostics",
		GroupID: cmd.GroupInspect,
		Example: "  make 2>&1 | builderr parse --context\n" +
			"  builderr parse build.log --pattern '^(.*):([0-9]+):([0-9]+): (.*)$'",
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			inputFile := ""
			if len(args) == 1 {
				inputFile = args[0]
			}
			return runParse(c.OutOrStdout(), inputFile, opts)
		},
	}

	parseCmd.Flags().StringVar(&opts.color, "color", "auto", "Colorize the output: auto, always or never")
	parseCmd.Flags().BoolVarP(&opts.context, "context", "C", false, "Print the source line of every diagnostic with the span marked")
	return parseCmd
}

// readInput reads input from file or stdin with buffering
func readInput(inputFile string) (string, error) {
	var reader io.Reader

	if inputFile != "" {
		file, err := os.Open(inputFile)
		if err != nil {
			return "", fmt.Errorf("opening input file: %w", err)
		}
		defer file.Close() // nolint: errcheck
		reader = file
	} else {
		reader = os.Stdin
	}

	content, err := io.ReadAll(bufio.NewReaderSize(reader, defaultSize))
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(content), nil
}

func setColorMode(mode string) error {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto":
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	default:
		return fmt.Errorf("invalid --color value %q: want auto, always or never", mode)
	}
	return nil
}

func runParse(w io.Writer, inputFile string, opts *parseOptions) error {
	if err := setColorMode(opts.color); err != nil {
		return err
	}

	config, _, err := opts.loadConfig()
	if err != nil {
		return err
	}
	baseDir, err := opts.workDir()
	if err != nil {
		return fmt.Errorf("resolving base directory: %w", err)
	}

	output, err := readInput(inputFile)
	if err != nil {
		return err
	}

	settings := config.ToSettings()
	engine := internal.NewEngine(batchHost{}, settings)
	snapshot, err := engine.Ingest(output, opts.resultPattern(config), baseDir)
	if err != nil {
		return err
	}

	out := bufio.NewWriterSize(w, defaultSize)
	printer := newDiagnosticPrinter(out, settings, config.DefaultColor)
	if opts.context {
		printer.width = terminalWidth()
	}
	for _, d := range snapshot.Diagnostics {
		printer.print(d, opts.context)
	}
	return out.Flush()
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// diagnosticPrinter formats diagnostics one per line, optionally followed by
// the source line they point at
type diagnosticPrinter struct {
	w            io.Writer
	settings     internal.Settings
	defaultColor string
	width        int
	buffers      map[string]*internal.TextBuffer
}

func newDiagnosticPrinter(w io.Writer, settings internal.Settings, defaultColor string) *diagnosticPrinter {
	return &diagnosticPrinter{
		w:            w,
		settings:     settings,
		defaultColor: defaultColor,
		buffers:      make(map[string]*internal.TextBuffer),
	}
}

// label names the category of d, its tag when one is configured
func (p *diagnosticPrinter) label(d diagparse.Diagnostic) (string, internal.Color) {
	if d.Category < 0 || d.Category >= len(p.settings.Rules) {
		return strconv.Itoa(d.Category), internal.GetColor(p.defaultColor, "default")
	}
	style := p.settings.Rules[d.Category].Style
	name := style.Tag
	if name == "" {
		name = strconv.Itoa(d.Category)
	}
	return name, internal.GetColor(style.Color, p.defaultColor)
}

func (p *diagnosticPrinter) print(d diagparse.Diagnostic, withContext bool) {
	name, c := p.label(d)
	location := d.Location()
	if d.HasLine() {
		location += ":" + strconv.Itoa(d.Line)
	}
	if d.HasColumn() {
		location += ":" + strconv.Itoa(d.Column)
	}

	fmt.Fprintf(p.w, "%s: %s %s\n", color.New(color.Bold).Sprint(location), c.FgString("["+name+"]"), d.Message)

	if withContext {
		p.printContext(d, c)
	}
}

func (p *diagnosticPrinter) buffer(path string) (*internal.TextBuffer, error) {
	if buf, ok := p.buffers[path]; ok {
		return buf, nil
	}
	buf, err := internal.LoadTextBuffer(path)
	if err != nil {
		return nil, err
	}
	p.buffers[path] = buf
	return buf, nil
}

// printContext prints the source line of d with the resolved span colored
// and a marker line below it
func (p *diagnosticPrinter) printContext(d diagparse.Diagnostic, c internal.Color) {
	buf, err := p.buffer(d.Location())
	if err != nil {
		slog.Debug("no source for diagnostic", "file", d.Location(), "error", err)
		return
	}

	span, ok, err := internal.ResolveSpan(buf, d.Line, d.Column)
	if err != nil || !ok {
		if err != nil {
			slog.Debug("diagnostic outside of source", "diagnostic", d.String(), "error", err)
		}
		return
	}

	row, _ := buf.RowCol(span.Start)
	lineStart, _ := buf.TextPoint(row, 0)
	// tabs and spaces are both one byte, so span offsets still apply
	line := strings.ReplaceAll(buf.Line(row), "\t", " ")
	start := span.Start - lineStart
	end := min(span.End-lineStart, len(line))

	const indent = "    "
	before, marked, after := line[:start], line[start:end], line[end:]
	text := indent + before + c.FgString(marked) + after
	if p.width > 0 && runewidth.StringWidth(indent+line) > p.width {
		text = runewidth.Truncate(indent+line, p.width, "…")
	}
	fmt.Fprintln(p.w, text)

	marker := "^" + strings.Repeat("~", max(0, runewidth.StringWidth(marked)-1))
	fmt.Fprintln(p.w, indent+strings.Repeat(" ", runewidth.StringWidth(before))+c.FgString(marker))
}
