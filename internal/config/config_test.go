package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig tests that defaults carry the expected values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8444 {
		t.Errorf("Expected default port 8444, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Devices.Keyboard != "/dev/hidg0" {
		t.Errorf("Expected keyboard device /dev/hidg0, got %s", cfg.Devices.Keyboard)
	}
	if cfg.Devices.Mouse != "/dev/hidg1" {
		t.Errorf("Expected mouse device /dev/hidg1, got %s", cfg.Devices.Mouse)
	}
	if cfg.Screen.Width != 2560 || cfg.Screen.Height != 1600 {
		t.Errorf("Expected screen 2560x1600, got %dx%d", cfg.Screen.Width, cfg.Screen.Height)
	}
	if cfg.Screen.DeviceMaxX != 692 || cfg.Screen.DeviceMaxY != 433 {
		t.Errorf("Expected device max 692x433, got %dx%d", cfg.Screen.DeviceMaxX, cfg.Screen.DeviceMaxY)
	}
	if cfg.Macro.TapDelayMs != 10 {
		t.Errorf("Expected tap delay 10ms, got %d", cfg.Macro.TapDelayMs)
	}
	if cfg.Mouse.Overshoot != 3000 {
		t.Errorf("Expected overshoot 3000, got %d", cfg.Mouse.Overshoot)
	}
	if cfg.Server.MaxUploadMB != 16 {
		t.Errorf("Expected upload cap 16MB, got %d", cfg.Server.MaxUploadMB)
	}
}

// TestLoadMissingFile tests that loading a missing file keeps defaults
func TestLoadMissingFile(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))

	if err := m.Load(); err != nil {
		t.Fatalf("Load with missing file failed: %v", err)
	}
	if m.Get().Server.Port != 8444 {
		t.Errorf("Expected default port after missing-file load, got %d", m.Get().Server.Port)
	}
}

// TestSaveLoadRoundTrip tests that saved configuration loads back unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManagerAt(path)

	cfg := DefaultConfig()
	cfg.Server.Port = 9000
	cfg.Server.APIToken = "secret"
	cfg.Devices.Keyboard = "/dev/hidg2"
	cfg.Screen.Width = 1920
	cfg.Screen.Height = 1080
	m.Set(cfg)

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m2 := NewManagerAt(path)
	if err := m2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := m2.Get()
	if got.Server.Port != 9000 {
		t.Errorf("Expected port 9000 after round trip, got %d", got.Server.Port)
	}
	if got.Server.APIToken != "secret" {
		t.Errorf("Expected token to survive round trip, got %q", got.Server.APIToken)
	}
	if got.Devices.Keyboard != "/dev/hidg2" {
		t.Errorf("Expected keyboard device /dev/hidg2, got %s", got.Devices.Keyboard)
	}
	if got.Screen.Width != 1920 || got.Screen.Height != 1080 {
		t.Errorf("Expected screen 1920x1080, got %dx%d", got.Screen.Width, got.Screen.Height)
	}
}

// TestEnvOverrides tests that HID_SERVER_* variables override the file
func TestEnvOverrides(t *testing.T) {
	os.Setenv("HID_SERVER_PORT", "8555")
	os.Setenv("HID_SERVER_TOKEN", "env-token")
	os.Setenv("HID_SERVER_KEYBOARD_DEVICE", "/dev/hidg9")
	defer func() {
		os.Unsetenv("HID_SERVER_PORT")
		os.Unsetenv("HID_SERVER_TOKEN")
		os.Unsetenv("HID_SERVER_KEYBOARD_DEVICE")
	}()

	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := m.Get()
	if got.Server.Port != 8555 {
		t.Errorf("Expected env port 8555, got %d", got.Server.Port)
	}
	if got.Server.APIToken != "env-token" {
		t.Errorf("Expected env token, got %q", got.Server.APIToken)
	}
	if got.Devices.Keyboard != "/dev/hidg9" {
		t.Errorf("Expected env keyboard device, got %s", got.Devices.Keyboard)
	}
}

// TestChangeCallback tests that Set fires the registered callback
func TestChangeCallback(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))

	fired := false
	m.RegisterChangeCallback(func() { fired = true })
	m.Set(DefaultConfig())

	if !fired {
		t.Error("Expected change callback to fire on Set")
	}
}

// TestDurationHelpers tests the millisecond-to-duration conversions
func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Macro.TapDelay().Milliseconds() != 10 {
		t.Errorf("Expected 10ms tap delay, got %v", cfg.Macro.TapDelay())
	}
	if cfg.Macro.SleepSlice().Milliseconds() != 100 {
		t.Errorf("Expected 100ms sleep slice, got %v", cfg.Macro.SleepSlice())
	}
}
