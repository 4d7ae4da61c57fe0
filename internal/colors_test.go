package internal

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
)

func TestMatchColor(t *testing.T) {
	c, err := ParseColor("green")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if c.FgString("foo") != color.New(color.FgGreen).Sprint("foo") {
		t.Errorf("Expected %q, got %q", color.New(color.FgGreen).Sprint("foo"), c.FgString("foo"))
	}
	if c.Tcell() != tcell.ColorGreen {
		t.Errorf("Expected tcell green, got %v", c.Tcell())
	}
}

func TestParseRGB(t *testing.T) {
	saved := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = saved }()

	c, err := ParseColor("#1b1cbf")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if s := c.FgString("foo"); !strings.Contains(s, "27;28;191") {
		t.Errorf("Expected RGB color with 27;28;191, got %q", s)
	}
	if c.Tcell() != tcell.NewRGBColor(27, 28, 191) {
		t.Errorf("Unexpected tcell color %v", c.Tcell())
	}
}

func TestParseScopeColor(t *testing.T) {
	tests := map[string]tcell.Color{
		"invalid":            tcell.ColorRed,
		"invalid.illegal":    tcell.ColorRed,
		"invalid.deprecated": tcell.ColorYellow,
		"region.bluish":      tcell.ColorBlue,
		"markup.inserted.go": tcell.ColorGreen,
	}
	for scope, want := range tests {
		c, err := ParseColor(scope)
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", scope, err)
			continue
		}
		if c.Tcell() != want {
			t.Errorf("ParseColor(%q) = %v, want %v", scope, c.Tcell(), want)
		}
	}
}

func TestInvalidColor(t *testing.T) {
	for _, name := range []string{"#1b1cbj", "wat"} {
		if _, err := ParseColor(name); err == nil {
			t.Errorf("Expected error for %q", name)
		}
	}
}

func TestGetColorFallback(t *testing.T) {
	if c := GetColor("wat", "red"); c.Tcell() != tcell.ColorRed {
		t.Errorf("Expected fallback red, got %v", c.Tcell())
	}
	if c := GetColor("wat", "nope"); c.Tcell() != tcell.ColorDefault {
		t.Errorf("Expected terminal default, got %v", c.Tcell())
	}
}
