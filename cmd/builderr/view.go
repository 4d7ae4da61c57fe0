package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Hanaasagi/builderr/cmd"
	"github.com/Hanaasagi/builderr/internal"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
)

const configPollInterval = time.Second

type viewOptions struct {
	*rootOptions
	output   string
	commands []string
}

var viewKeys = []cmd.KeyBinding{
	{Keys: "arrows, PgUp, PgDn", Description: "move the cursor"},
	{Keys: "Tab", Description: "next file"},
	{Keys: "n", Description: "jump to the next diagnostic"},
	{Keys: "Enter", Description: "show the message under the cursor"},
	{Keys: "h", Description: "show or hide diagnostics"},
	{Keys: "a", Description: "toggle the automatic popup"},
	{Keys: "r", Description: "reload the file from disk"},
	{Keys: "Esc", Description: "close the popup, quit when none is open"},
	{Keys: "q, Ctrl-C", Description: "quit"},
}

func newViewCommand(root *rootOptions) *cobra.Command {
	opts := &viewOptions{rootOptions: root}

	viewCmd := &cobra.Command{
		Use:     "view FILE...",
		Short:   "Open source files with the diagnostics of a build log highlighted",
		GroupID: cmd.GroupInspect,
		Example: "  make 2>&1 | builderr view src/main.c\n" +
			"  builderr view main.c util.c -o build.log --command disable-auto-popup",
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runView(args, opts)
		},
	}

	viewCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Build log to parse, stdin when omitted")
	viewCmd.Flags().StringArrayVar(&opts.commands, "command", nil,
		"Command to run once the build is loaded, repeatable: "+strings.Join(internal.CommandNames(), ", "))
	cmd.AnnotateKeys(viewCmd, viewKeys)
	return viewCmd
}

// parseCommands resolves the --command values in order
func parseCommands(names []string) ([]internal.Command, error) {
	commands := make([]internal.Command, 0, len(names))
	for _, name := range names {
		c, err := internal.ParseCommand(name)
		if err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	return commands, nil
}

func runView(files []string, opts *viewOptions) error {
	commands, err := parseCommands(opts.commands)
	if err != nil {
		return err
	}
	config, configPath, err := opts.loadConfig()
	if err != nil {
		return err
	}
	baseDir, err := opts.workDir()
	if err != nil {
		return fmt.Errorf("resolving base directory: %w", err)
	}

	buffers := make([]*internal.TextBuffer, 0, len(files))
	for _, file := range files {
		buf, err := internal.LoadTextBuffer(file)
		if err != nil {
			return err
		}
		buffers = append(buffers, buf)
	}

	output, err := readInput(opts.output)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}

	tv := internal.NewTerminalView(screen, buffers, config.DefaultColor)
	engine := internal.NewEngine(tv, config.ToSettings())
	tv.Attach(engine)

	if opts.configPath != noConfig {
		stop := tv.WatchConfig(configPath, configPollInterval, loadSettings)
		defer stop()
	}

	tv.QueueBuild(output, opts.resultPattern(config), baseDir)
	for _, c := range commands {
		tv.QueueCommand(c)
	}

	slog.Info("viewing", "files", len(buffers), "config", configPath)
	return tv.Run()
}
