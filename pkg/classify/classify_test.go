package classify

import (
	"testing"
)

func mustRules(t *testing.T, configs []RuleConfig) []Rule {
	t.Helper()
	rules, err := CompileRules(configs, "red")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return rules
}

func TestClassifyOrderStable(t *testing.T) {
	rules := mustRules(t, []RuleConfig{
		{Regex: "error"},
		{Regex: "warn"},
		{},
	})

	tests := []struct {
		message string
		want    int
	}{
		{"warning: unused", 1},
		{"error: bad token", 0},
		{"an error and a warning", 0},
		{"note: declared here", 2},
	}

	for _, tt := range tests {
		if got := Classify(tt.message, rules); got != tt.want {
			t.Errorf("Classify(%q) = %d, want %d", tt.message, got, tt.want)
		}
	}
}

func TestClassifySubstringSemantics(t *testing.T) {
	rules := mustRules(t, []RuleConfig{
		{Regex: "^fatal"},
		{Regex: `deprecat(ed|ion)`},
	})

	if got := Classify("warning: foo is deprecated since 1.2", rules); got != 1 {
		t.Errorf("Expected match inside the message, got %d", got)
	}
	if got := Classify("fatal: cannot open", rules); got != 0 {
		t.Errorf("Expected anchored match, got %d", got)
	}
}

func TestClassifyFallbackWithoutCatchAll(t *testing.T) {
	rules := mustRules(t, []RuleConfig{
		{Regex: "error"},
		{Regex: "warn"},
	})

	if got := Classify("note: something", rules); got != 0 {
		t.Errorf("Expected fallback index 0, got %d", got)
	}
	if got := Classify("anything", nil); got != 0 {
		t.Errorf("Expected fallback index 0 for empty rules, got %d", got)
	}
}

func TestClassifyCatchAllStopsSearch(t *testing.T) {
	rules := mustRules(t, []RuleConfig{
		{Regex: "error"},
		{},
		{Regex: "warn"},
	})

	if got := Classify("warning: unused", rules); got != 1 {
		t.Errorf("Expected catch-all at index 1, got %d", got)
	}
	if !rules[1].CatchAll() || rules[0].CatchAll() {
		t.Errorf("Unexpected catch-all flags")
	}
}

func TestCompileRulesBrokenRegex(t *testing.T) {
	rules, err := CompileRules([]RuleConfig{
		{Regex: "error("},
		{Regex: "warn"},
		{},
	}, "red")
	if err == nil {
		t.Fatalf("Expected error for invalid regex")
	}
	if len(rules) != 3 {
		t.Fatalf("Expected broken rule to keep its index, got %d rules", len(rules))
	}
	if rules[0].CatchAll() {
		t.Errorf("Broken rule must not act as catch-all")
	}
	if got := Classify("error(: x", rules); got != 2 {
		t.Errorf("Expected broken rule to never match, got %d", got)
	}
}

func TestCompileRulesStyles(t *testing.T) {
	rules, err := CompileRules([]RuleConfig{
		{Regex: "error", Color: "yellow", Icon: "dot", Display: "squiggly_underline", Tag: "E"},
		{Display: "OUTLINE"},
		{Display: "sparkles"},
	}, "cyan")
	if err == nil {
		t.Errorf("Expected error for unknown display style")
	}

	if rules[0].Style != (Style{Color: "yellow", Icon: "dot", Display: DisplaySquigglyUnderline, Tag: "E"}) {
		t.Errorf("Unexpected style %+v", rules[0].Style)
	}
	if rules[1].Style.Color != "cyan" || rules[1].Style.Display != DisplayOutline {
		t.Errorf("Expected default color and outline, got %+v", rules[1].Style)
	}
	if rules[2].Style.Display != DisplayFill {
		t.Errorf("Expected unknown display to fall back to fill, got %v", rules[2].Style.Display)
	}
}

func TestParseDisplay(t *testing.T) {
	for i, name := range displayNames {
		got, err := ParseDisplay(name)
		if err != nil || got != DisplayStyle(i) {
			t.Errorf("ParseDisplay(%q) = %v, %v", name, got, err)
		}
		if got.String() != name {
			t.Errorf("Expected %q, got %q", name, got.String())
		}
	}
	if got, err := ParseDisplay(""); err != nil || got != DisplayFill {
		t.Errorf("Expected fill for empty display, got %v, %v", got, err)
	}
}
