package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DisplayStyle is how a category's spans are drawn by the host
type DisplayStyle int

const (
	DisplayNone DisplayStyle = iota
	DisplayFill
	DisplayOutline
	DisplaySolidUnderline
	DisplayStippledUnderline
	DisplaySquigglyUnderline
)

var displayNames = []string{
	DisplayNone:              "none",
	DisplayFill:              "fill",
	DisplayOutline:           "outline",
	DisplaySolidUnderline:    "solid_underline",
	DisplayStippledUnderline: "stippled_underline",
	DisplaySquigglyUnderline: "squiggly_underline",
}

func (d DisplayStyle) String() string {
	if d < 0 || int(d) >= len(displayNames) {
		return "unknown"
	}
	return displayNames[d]
}

// ParseDisplay parses a display style name. An empty name means fill.
func ParseDisplay(name string) (DisplayStyle, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DisplayFill, nil
	}
	for i, n := range displayNames {
		if n == name {
			return DisplayStyle(i), nil
		}
	}
	return DisplayFill, fmt.Errorf("unknown display style %q", name)
}

// Style is the visual treatment of one category
type Style struct {
	Color   string
	Icon    string
	Display DisplayStyle
	Tag     string
}

// RuleConfig is the user-facing form of a category rule
type RuleConfig struct {
	Regex   string `toml:"regex"`
	Color   string `toml:"color"`
	Icon    string `toml:"icon"`
	Display string `toml:"display"`
	Tag     string `toml:"tag"`
}

// Rule is one compiled category. A rule without a pattern matches every message.
type Rule struct {
	Pattern *regexp.Regexp
	Style   Style

	broken bool
}

// CatchAll reports whether the rule matches unconditionally
func (r Rule) CatchAll() bool {
	return r.Pattern == nil && !r.broken
}

// Matches reports whether message belongs to this rule. The pattern may match
// anywhere in the message.
func (r Rule) Matches(message string) bool {
	if r.broken {
		return false
	}
	if r.Pattern == nil {
		return true
	}
	return r.Pattern.MatchString(message)
}

// CompileRules compiles rule configs in order. A rule whose regex does not
// compile keeps its index but never matches; the returned error lists every
// such problem. Rules without a color use defaultColor.
func CompileRules(configs []RuleConfig, defaultColor string) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	var errs []error

	for i, cfg := range configs {
		display, err := ParseDisplay(cfg.Display)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
		}

		color := cfg.Color
		if color == "" {
			color = defaultColor
		}

		rule := Rule{
			Style: Style{
				Color:   color,
				Icon:    cfg.Icon,
				Display: display,
				Tag:     cfg.Tag,
			},
		}

		if cfg.Regex != "" {
			re, err := regexp.Compile(cfg.Regex)
			if err != nil {
				errs = append(errs, fmt.Errorf("rule %d: compiling regex: %w", i, err))
				rule.broken = true
			} else {
				rule.Pattern = re
			}
		}

		rules = append(rules, rule)
	}

	return rules, errors.Join(errs...)
}

// Classify returns the index of the first rule matching message. A rule
// without a pattern ends the search. When nothing matches the result is 0.
func Classify(message string, rules []Rule) int {
	for i, rule := range rules {
		if rule.Matches(message) {
			return i
		}
	}
	return 0
}
