// Package keymap provides the static mapping from symbolic key names to USB
// HID usage codes, plus modifier classification helpers.
package keymap

import "strings"

// Modifier key bitmasks (byte 0 of the keyboard report)
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGUI   = 0x80
)

// Modifier usage code range
const (
	modifierFirst = 0xE0
	modifierLast  = 0xE7
)

// codes maps lower-case symbolic key names to USB HID usage codes.
var codes = map[string]byte{
	// Letters
	"a": 0x04, "b": 0x05, "c": 0x06, "d": 0x07, "e": 0x08, "f": 0x09,
	"g": 0x0A, "h": 0x0B, "i": 0x0C, "j": 0x0D, "k": 0x0E, "l": 0x0F,
	"m": 0x10, "n": 0x11, "o": 0x12, "p": 0x13, "q": 0x14, "r": 0x15,
	"s": 0x16, "t": 0x17, "u": 0x18, "v": 0x19, "w": 0x1A, "x": 0x1B,
	"y": 0x1C, "z": 0x1D,

	// Digits
	"1": 0x1E, "2": 0x1F, "3": 0x20, "4": 0x21, "5": 0x22,
	"6": 0x23, "7": 0x24, "8": 0x25, "9": 0x26, "0": 0x27,

	// Control and punctuation
	"enter": 0x28, "escape": 0x29, "backspace": 0x2A, "tab": 0x2B,
	"space": 0x2C, "minus": 0x2D, "equal": 0x2E, "lbracket": 0x2F,
	"rbracket": 0x30, "backslash": 0x31, "semicolon": 0x33, "quote": 0x34,
	"grave": 0x35, "comma": 0x36, "period": 0x37, "slash": 0x38,
	"capslock": 0x39,

	// Function keys
	"f1": 0x3A, "f2": 0x3B, "f3": 0x3C, "f4": 0x3D, "f5": 0x3E, "f6": 0x3F,
	"f7": 0x40, "f8": 0x41, "f9": 0x42, "f10": 0x43, "f11": 0x44, "f12": 0x45,

	// Navigation cluster
	"printscreen": 0x46, "scrolllock": 0x47, "pause": 0x48, "insert": 0x49,
	"home": 0x4A, "pgup": 0x4B, "delete": 0x4C, "end": 0x4D, "pgdn": 0x4E,

	// Arrows
	"right": 0x4F, "left": 0x50, "down": 0x51, "up": 0x52,

	// Numpad
	"numlock": 0x53, "kp_divide": 0x54, "kp_multiply": 0x55, "kp_minus": 0x56,
	"kp_plus": 0x57, "kp_enter": 0x58, "kp_1": 0x59, "kp_2": 0x5A,
	"kp_3": 0x5B, "kp_4": 0x5C, "kp_5": 0x5D, "kp_6": 0x5E,
	"kp_7": 0x5F, "kp_8": 0x60, "kp_9": 0x61, "kp_0": 0x62, "kp_dot": 0x63,

	// Modifiers
	"lctrl": 0xE0, "lshift": 0xE1, "lalt": 0xE2, "lwin": 0xE3,
	"rctrl": 0xE4, "rshift": 0xE5, "ralt": 0xE6, "rwin": 0xE7,

	// Punctuation aliases
	"-": 0x2D, "=": 0x2E, "[": 0x2F, "]": 0x30, "\\": 0x31,
	";": 0x33, "'": 0x34, "`": 0x35, ",": 0x36, ".": 0x37, "/": 0x38,

	// Modifier aliases (left-hand variants)
	"ctrl": 0xE0, "shift": 0xE1, "alt": 0xE2,
}

// Code returns the USB HID usage code for a symbolic key name. Lookup is
// case-insensitive; ok is false for names the table does not know.
func Code(name string) (code byte, ok bool) {
	code, ok = codes[strings.ToLower(name)]
	return code, ok
}

// IsModifier reports whether a usage code is a modifier key (LCtrl..RGui).
func IsModifier(code byte) bool {
	return code >= modifierFirst && code <= modifierLast
}

// ModifierBit returns the report modifier-byte bit for a modifier usage
// code, or 0 if the code is not a modifier.
func ModifierBit(code byte) byte {
	if !IsModifier(code) {
		return 0
	}
	return 1 << (code - modifierFirst)
}
