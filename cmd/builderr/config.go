package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Hanaasagi/builderr/internal"
	"github.com/Hanaasagi/builderr/pkg/classify"
	"github.com/adrg/xdg"
)

// noConfig as the --config value skips the config file
const noConfig = "NONE"

// defaultPattern matches gcc/clang style "file:line:col: message" output
const defaultPattern = `^(..[^:\n]*):([0-9]+):?([0-9]+)?:? (.*)$`

type Config struct {
	ResultFileRegex       string                `toml:"result_file_regex"`
	DefaultColor          string                `toml:"default_color"`
	PopupTruncate         bool                  `toml:"popup_truncate"`
	PopupTemplate         string                `toml:"popup_template"`
	PopupTemplateExtended string                `toml:"popup_template_extended"`
	PopupMaxWidth         int                   `toml:"popup_max_width"`
	PopupMaxHeight        int                   `toml:"popup_max_height"`
	Colors                []classify.RuleConfig `toml:"colors"`
}

func defaultRules() []classify.RuleConfig {
	return []classify.RuleConfig{
		{Regex: "error", Color: "red", Display: "squiggly_underline"},
		{Regex: "warn", Color: "yellow", Display: "solid_underline"},
		{Color: "cyan", Display: "outline"},
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		ResultFileRegex:       defaultPattern,
		DefaultColor:          "red",
		PopupTruncate:         false,
		PopupTemplate:         "$1",
		PopupTemplateExtended: "$1\n$2",
		PopupMaxWidth:         80,
		PopupMaxHeight:        12,
		Colors:                defaultRules(),
	}
}

// DefaultConfigPath returns the config file location under the XDG config dir
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// LoadConfigFromFile overlays the file at path onto the defaults. A missing
// file, or the path NONE, yields the defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path == noConfig {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // no config file, return defaults
	}

	// colors replaces the default rules as a whole
	config.Colors = nil
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML config: %w", err)
	}
	if !md.IsDefined("colors") {
		config.Colors = defaultRules()
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		slog.Warn("unknown configuration keys", "path", path, "keys", strings.Join(keys, ","))
	}

	return config, nil
}

// ToSettings compiles the category rules. Broken rules and unknown colors are
// reported once here and degrade instead of failing the load.
func (c *Config) ToSettings() internal.Settings {
	rules, err := classify.CompileRules(c.Colors, c.DefaultColor)
	if err != nil {
		slog.Warn("invalid category rules", "error", err)
	}

	for i := range rules {
		if _, err := internal.ParseColor(rules[i].Style.Color); err != nil {
			slog.Warn("unknown category color", "rule", i, "color", rules[i].Style.Color, "fallback", c.DefaultColor)
			rules[i].Style.Color = c.DefaultColor
		}
	}
	if len(rules) == 0 {
		slog.Warn("no category rules configured, nothing will be highlighted")
	}

	return internal.Settings{
		Rules:                 rules,
		PopupTruncate:         c.PopupTruncate,
		PopupTemplate:         c.PopupTemplate,
		PopupTemplateExtended: c.PopupTemplateExtended,
		PopupMaxWidth:         c.PopupMaxWidth,
		PopupMaxHeight:        c.PopupMaxHeight,
	}
}

// loadSettings reads path and converts it in one step, for config reloads
func loadSettings(path string) (internal.Settings, error) {
	config, err := LoadConfigFromFile(path)
	if err != nil {
		return internal.Settings{}, err
	}
	return config.ToSettings(), nil
}

// Write encodes the config as TOML
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
