package keymap

import "testing"

// TestCodeLookup tests that known key names resolve to their usage codes
func TestCodeLookup(t *testing.T) {
	cases := []struct {
		name string
		code byte
	}{
		{"a", 0x04},
		{"z", 0x1D},
		{"1", 0x1E},
		{"0", 0x27},
		{"enter", 0x28},
		{"space", 0x2C},
		{"f1", 0x3A},
		{"f12", 0x45},
		{"up", 0x52},
		{"kp_dot", 0x63},
		{"lctrl", 0xE0},
		{"rwin", 0xE7},
	}

	for _, c := range cases {
		code, ok := Code(c.name)
		if !ok {
			t.Errorf("Expected %q to be a known key", c.name)
			continue
		}
		if code != c.code {
			t.Errorf("Expected code 0x%02X for %q, got 0x%02X", c.code, c.name, code)
		}
	}
}

// TestCodeCaseInsensitive tests that lookup ignores case
func TestCodeCaseInsensitive(t *testing.T) {
	lower, ok1 := Code("enter")
	upper, ok2 := Code("Enter")
	if !ok1 || !ok2 {
		t.Fatal("Expected 'enter' and 'Enter' to both resolve")
	}
	if lower != upper {
		t.Errorf("Expected same code for both cases, got 0x%02X and 0x%02X", lower, upper)
	}
}

// TestCodeUnknown tests that unknown names report ok=false
func TestCodeUnknown(t *testing.T) {
	if _, ok := Code("hyperkey"); ok {
		t.Error("Expected 'hyperkey' to be unknown")
	}
}

// TestAliases tests that punctuation and modifier aliases share codes
func TestAliases(t *testing.T) {
	pairs := [][2]string{
		{"-", "minus"},
		{"=", "equal"},
		{"[", "lbracket"},
		{"]", "rbracket"},
		{"\\", "backslash"},
		{";", "semicolon"},
		{"'", "quote"},
		{"`", "grave"},
		{",", "comma"},
		{".", "period"},
		{"/", "slash"},
		{"ctrl", "lctrl"},
		{"shift", "lshift"},
		{"alt", "lalt"},
	}

	for _, p := range pairs {
		a, ok1 := Code(p[0])
		b, ok2 := Code(p[1])
		if !ok1 || !ok2 {
			t.Errorf("Expected %q and %q to both resolve", p[0], p[1])
			continue
		}
		if a != b {
			t.Errorf("Expected %q and %q to share a code, got 0x%02X and 0x%02X", p[0], p[1], a, b)
		}
	}
}

// TestIsModifier tests modifier classification boundaries
func TestIsModifier(t *testing.T) {
	if IsModifier(0x04) {
		t.Error("Expected 0x04 (a) not to be a modifier")
	}
	if !IsModifier(0xE0) {
		t.Error("Expected 0xE0 (lctrl) to be a modifier")
	}
	if !IsModifier(0xE7) {
		t.Error("Expected 0xE7 (rwin) to be a modifier")
	}
	if IsModifier(0xE8) {
		t.Error("Expected 0xE8 not to be a modifier")
	}
}

// TestModifierBit tests the modifier byte bit positions
func TestModifierBit(t *testing.T) {
	cases := []struct {
		name string
		bit  byte
	}{
		{"lctrl", ModLeftCtrl},
		{"lshift", ModLeftShift},
		{"lalt", ModLeftAlt},
		{"lwin", ModLeftGUI},
		{"rctrl", ModRightCtrl},
		{"rshift", ModRightShift},
		{"ralt", ModRightAlt},
		{"rwin", ModRightGUI},
	}

	for _, c := range cases {
		code, _ := Code(c.name)
		if got := ModifierBit(code); got != c.bit {
			t.Errorf("Expected bit 0x%02X for %q, got 0x%02X", c.bit, c.name, got)
		}
	}

	if got := ModifierBit(0x04); got != 0 {
		t.Errorf("Expected bit 0 for non-modifier, got 0x%02X", got)
	}
}

// TestParseCombo tests combo string splitting and validation
func TestParseCombo(t *testing.T) {
	keys, err := ParseCombo("ctrl+alt+delete")
	if err != nil {
		t.Fatalf("Expected combo to parse, got error: %v", err)
	}
	want := []string{"ctrl", "alt", "delete"}
	if len(keys) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Expected key %d to be %q, got %q", i, want[i], keys[i])
		}
	}
}

// TestParseComboWhitespace tests that parts are trimmed and lower-cased
func TestParseComboWhitespace(t *testing.T) {
	keys, err := ParseCombo(" Ctrl + Shift + A ")
	if err != nil {
		t.Fatalf("Expected combo to parse, got error: %v", err)
	}
	if keys[0] != "ctrl" || keys[1] != "shift" || keys[2] != "a" {
		t.Errorf("Expected [ctrl shift a], got %v", keys)
	}
}

// TestParseComboUnknown tests that unknown keys are rejected
func TestParseComboUnknown(t *testing.T) {
	if _, err := ParseCombo("ctrl+bogus"); err == nil {
		t.Error("Expected error for unknown key in combo")
	}
	if _, err := ParseCombo("ctrl++a"); err == nil {
		t.Error("Expected error for empty combo part")
	}
}
