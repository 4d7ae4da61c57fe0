package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
)

// Color is a category color usable on a plain terminal and in the tcell host
type Color interface {
	FgString(text string) string
	Tcell() tcell.Color
}

// ColorWrapper wraps fatih/color functionality
type ColorWrapper struct {
	colorFunc func(...interface{}) string
	tcell     tcell.Color
	isRGB     bool
	r, g, b   uint8
}

// FgString returns a string with the color applied
func (c ColorWrapper) FgString(text string) string {
	if c.isRGB {
		if color.NoColor {
			return text
		}
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", c.r, c.g, c.b, text)
	}
	return c.colorFunc(text)
}

// Tcell returns the color for the terminal host
func (c ColorWrapper) Tcell() tcell.Color {
	if c.isRGB {
		return tcell.NewRGBColor(int32(c.r), int32(c.g), int32(c.b))
	}
	return c.tcell
}

var rgbRegex = regexp.MustCompile(`^#([a-fA-F0-9]{2})([a-fA-F0-9]{2})([a-fA-F0-9]{2})$`)

var (
	colorCache = make(map[string]Color, 32)
	colorMutex sync.RWMutex
)

func named(attr color.Attribute, tc tcell.Color) ColorWrapper {
	return ColorWrapper{
		colorFunc: color.New(attr).SprintFunc(),
		tcell:     tc,
	}
}

var predefinedColors = map[string]ColorWrapper{
	"black":   named(color.FgBlack, tcell.ColorBlack),
	"red":     named(color.FgRed, tcell.ColorRed),
	"green":   named(color.FgGreen, tcell.ColorGreen),
	"yellow":  named(color.FgYellow, tcell.ColorYellow),
	"blue":    named(color.FgBlue, tcell.ColorBlue),
	"magenta": named(color.FgMagenta, tcell.ColorFuchsia),
	"cyan":    named(color.FgCyan, tcell.ColorAqua),
	"white":   named(color.FgWhite, tcell.ColorWhite),
	"orange":  named(color.FgHiYellow, tcell.ColorOrange),
	"default": named(color.Reset, tcell.ColorDefault),
}

// scopeColors maps editor scope names, the usual way color rules are
// written, onto terminal colors. Longest prefix wins.
var scopeColors = []struct {
	prefix string
	color  string
}{
	{"invalid.deprecated", "yellow"},
	{"invalid", "red"},
	{"markup.deleted", "red"},
	{"markup.inserted", "green"},
	{"markup.changed", "yellow"},
	{"markup.warning", "yellow"},
	{"markup.info", "cyan"},
	{"region.redish", "red"},
	{"region.orangish", "orange"},
	{"region.yellowish", "yellow"},
	{"region.greenish", "green"},
	{"region.cyanish", "cyan"},
	{"region.bluish", "blue"},
	{"region.purplish", "magenta"},
	{"region.pinkish", "magenta"},
	{"comment", "white"},
}

// ParseColor parses a color name, a #rrggbb value or a scope name
func ParseColor(name string) (Color, error) {
	colorMutex.RLock()
	if cached, exists := colorCache[name]; exists {
		colorMutex.RUnlock()
		return cached, nil
	}
	colorMutex.RUnlock()

	var result Color

	if m := rgbRegex.FindStringSubmatch(name); m != nil {
		r, _ := strconv.ParseUint(m[1], 16, 8)
		g, _ := strconv.ParseUint(m[2], 16, 8)
		b, _ := strconv.ParseUint(m[3], 16, 8)
		result = ColorWrapper{
			colorFunc: color.New(color.FgWhite).SprintFunc(),
			isRGB:     true,
			r:         uint8(r),
			g:         uint8(g),
			b:         uint8(b),
		}
	} else {
		lowerName := strings.ToLower(strings.TrimSpace(name))
		if predefined, exists := predefinedColors[lowerName]; exists {
			result = predefined
		} else {
			for _, scope := range scopeColors {
				if strings.HasPrefix(lowerName, scope.prefix) {
					result = predefinedColors[scope.color]
					break
				}
			}
		}
	}

	if result == nil {
		return nil, fmt.Errorf("unknown color: %s", name)
	}

	colorMutex.Lock()
	colorCache[name] = result
	colorMutex.Unlock()

	return result, nil
}

// GetColor parses name and falls back to fallback, then to the terminal
// default, when it is not a known color
func GetColor(name, fallback string) Color {
	if c, err := ParseColor(name); err == nil {
		return c
	}
	slog.Warn("unknown color, using fallback", "color", name, "fallback", fallback)
	if c, err := ParseColor(fallback); err == nil {
		return c
	}
	return predefinedColors["default"]
}
