// Package config provides configuration management for the HID server.
package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Server contains the HTTP/WebSocket listener settings
	Server ServerConfig `json:"server"`

	// Devices contains the USB gadget device paths
	Devices DeviceConfig `json:"devices"`

	// Screen contains the screen and device coordinate dimensions
	Screen ScreenConfig `json:"screen"`

	// Macro contains macro execution timing
	Macro MacroConfig `json:"macro"`

	// Mouse contains mouse motion tuning
	Mouse MouseConfig `json:"mouse"`

	// Storage contains the data directories
	Storage StorageConfig `json:"storage"`
}

// ServerConfig contains the HTTP API settings
type ServerConfig struct {
	// Host is the listen address (default "0.0.0.0")
	Host string `json:"host"`

	// Port is the listen port (default 8444)
	Port int `json:"port"`

	// APIToken is an optional Bearer token required on API requests
	APIToken string `json:"api_token,omitempty"`

	// TLSEnabled serves the API over HTTPS with the certificate pair
	// from Storage.CertsDir, generating one when missing
	TLSEnabled bool `json:"tls_enabled"`

	// MaxUploadMB is the script upload size cap in megabytes
	MaxUploadMB int `json:"max_upload_mb"`
}

// DeviceConfig contains the USB gadget device paths
type DeviceConfig struct {
	// Keyboard is the keyboard gadget device path
	Keyboard string `json:"keyboard"`

	// Mouse is the mouse gadget device path
	Mouse string `json:"mouse"`

	// TraceOnly forces all reports to the trace output even when the
	// gadget devices exist
	TraceOnly bool `json:"trace_only"`
}

// ScreenConfig contains the coordinate space dimensions
type ScreenConfig struct {
	// Width and Height are the remote screen resolution in pixels
	Width  int `json:"width"`
	Height int `json:"height"`

	// DeviceMaxX and DeviceMaxY bound the HID device coordinate space
	DeviceMaxX int `json:"device_max_x"`
	DeviceMaxY int `json:"device_max_y"`
}

// MacroConfig contains macro execution timing
type MacroConfig struct {
	// TapDelayMs is the delay between the down and up edges of a tap
	TapDelayMs int `json:"tap_delay_ms"`

	// SleepSliceMs is the wait granularity for interruptible sleeps
	SleepSliceMs int `json:"sleep_slice_ms"`
}

// TapDelay returns the tap delay as a duration.
func (c MacroConfig) TapDelay() time.Duration {
	return time.Duration(c.TapDelayMs) * time.Millisecond
}

// SleepSlice returns the sleep slice as a duration.
func (c MacroConfig) SleepSlice() time.Duration {
	return time.Duration(c.SleepSliceMs) * time.Millisecond
}

// MouseConfig contains mouse motion tuning
type MouseConfig struct {
	// Overshoot is the re-centering distance per axis
	Overshoot int `json:"overshoot"`

	// MoveChunk is the per-report step for large movements
	MoveChunk int `json:"move_chunk"`

	// ResetGapMs is the gap between re-centering reports
	ResetGapMs int `json:"reset_gap_ms"`

	// MoveGapMs is the gap between movement chunks
	MoveGapMs int `json:"move_gap_ms"`

	// SettleDelayMs is the wait after re-centering
	SettleDelayMs int `json:"settle_delay_ms"`

	// ClickDelayMs is the wait between arrival and button press
	ClickDelayMs int `json:"click_delay_ms"`

	// ClickHoldMs is the wait between button press and release
	ClickHoldMs int `json:"click_hold_ms"`
}

// StorageConfig contains the data directories
type StorageConfig struct {
	// ScriptsDir holds uploaded macro scripts
	ScriptsDir string `json:"scripts_dir"`

	// ImagesDir holds per-script reference screenshots
	ImagesDir string `json:"images_dir"`

	// CertsDir holds the TLS certificate pair
	CertsDir string `json:"certs_dir"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8444,
			TLSEnabled:  true,
			MaxUploadMB: 16,
		},
		Devices: DeviceConfig{
			Keyboard: "/dev/hidg0",
			Mouse:    "/dev/hidg1",
		},
		Screen: ScreenConfig{
			Width:      2560,
			Height:     1600,
			DeviceMaxX: 692,
			DeviceMaxY: 433,
		},
		Macro: MacroConfig{
			TapDelayMs:   10,
			SleepSliceMs: 100,
		},
		Mouse: MouseConfig{
			Overshoot:     3000,
			MoveChunk:     100,
			ResetGapMs:    1,
			MoveGapMs:     5,
			SettleDelayMs: 50,
			ClickDelayMs:  100,
			ClickHoldMs:   50,
		},
		Storage: StorageConfig{
			ScriptsDir: "scripts",
			ImagesDir:  "images",
			CertsDir:   "certs",
		},
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a new configuration manager using the per-user
// default config location
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for an explicit file path
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "hid-server")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "hid-server")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "hid-server")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk and applies environment
// overrides. A missing file is not an error; defaults are kept.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if err == nil {
		if err := json.Unmarshal(data, m.config); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	m.applyEnv()

	if m.onChanged != nil {
		m.onChanged()
	}
	return nil
}

// applyEnv overrides loaded settings from HID_SERVER_* variables, usually
// populated from a .env file. Called with the mutex held.
func (m *Manager) applyEnv() {
	if v := os.Getenv("HID_SERVER_HOST"); v != "" {
		m.config.Server.Host = v
	}
	if v := os.Getenv("HID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			m.config.Server.Port = port
		}
	}
	if v := os.Getenv("HID_SERVER_TOKEN"); v != "" {
		m.config.Server.APIToken = v
	}
	if v := os.Getenv("HID_SERVER_TLS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			m.config.Server.TLSEnabled = enabled
		}
	}
	if v := os.Getenv("HID_SERVER_KEYBOARD_DEVICE"); v != "" {
		m.config.Devices.Keyboard = v
	}
	if v := os.Getenv("HID_SERVER_MOUSE_DEVICE"); v != "" {
		m.config.Devices.Mouse = v
	}
	if v := os.Getenv("HID_SERVER_SCRIPTS_DIR"); v != "" {
		m.config.Storage.ScriptsDir = v
	}
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	if m.onChanged != nil {
		m.onChanged()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Path returns the config file location
func (m *Manager) Path() string {
	return m.configPath
}
