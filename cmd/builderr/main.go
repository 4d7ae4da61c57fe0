package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/Hanaasagi/builderr/cmd"
	"github.com/Hanaasagi/builderr/internal/logger"
	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const (
	appName     = "builderr"
	defaultSize = 4096
)

var (
	Version     = "0.1.0"
	CommitSha   = "unknown"
	FullVersion = Version + "-" + CommitSha
)

var appDir = filepath.Join(xdg.StateHome, appName)

func init() {
	// Initialize logging
	logFilePath := filepath.Join(appDir, appName+".log")
	if err := logger.InitLogger(logFilePath, logger.LevelFromEnv()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
	}

	// Initialize crash reporting
	crashFilePath := filepath.Join(appDir, "crash")
	if f, err := os.Create(crashFilePath); err == nil {
		_ = debug.SetCrashOutput(f, debug.CrashOptions{})
	}
}

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	configPath string
	pattern    string
	baseDir    string
}

// loadConfig reads the configured file, or the default location
func (o *rootOptions) loadConfig() (*Config, string, error) {
	path := o.configPath
	if path == "" {
		path = DefaultConfigPath()
	}
	config, err := LoadConfigFromFile(path)
	if err != nil {
		return nil, path, err
	}
	return config, path, nil
}

// resultPattern prefers --pattern over the configured result_file_regex
func (o *rootOptions) resultPattern(config *Config) string {
	if o.pattern != "" {
		return o.pattern
	}
	return config.ResultFileRegex
}

// workDir is the directory relative paths in build output are resolved against
func (o *rootOptions) workDir() (string, error) {
	if o.baseDir != "" {
		return filepath.Abs(o.baseDir)
	}
	return os.Getwd()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Highlight compiler diagnostics in source files",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Parse build output and highlight the reported errors in your sources. %s",
			color.New(color.FgBlue).Sprintf("(%s)", FullVersion),
		),
		Version:       FullVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path, NONE for built-in defaults")
	rootCmd.PersistentFlags().StringVarP(&opts.pattern, "pattern", "p", "", "Result file regex with 3 or 4 capture groups (file, line, [column,] message)")
	rootCmd.PersistentFlags().StringVarP(&opts.baseDir, "base-dir", "d", "", "Directory relative paths in the build output are resolved against")

	cmd.Install(rootCmd)
	rootCmd.AddCommand(
		newParseCommand(opts),
		newViewCommand(opts),
		newConfigCommand(opts),
	)
	return rootCmd
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Short:   "Print the effective configuration",
		GroupID: cmd.GroupSetup,
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			config, path, err := opts.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "# %s\n", path)
			return config.Write(c.OutOrStdout())
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("Error executing command", "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
