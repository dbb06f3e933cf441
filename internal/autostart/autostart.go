// Package autostart provides auto-start on login for the HID server.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.hidserver.agent</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>`

const systemdUserUnit = `[Unit]
Description=HID macro server
After=network.target

[Service]
ExecStart={{.ExecutablePath}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

const unitName = "hid-server.service"

// Enable enables auto-start on login
func Enable() error {
	switch runtime.GOOS {
	case "linux":
		return enableLinux()
	case "darwin":
		return enableMac()
	case "windows":
		return enableWindows()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable disables auto-start on login
func Disable() error {
	switch runtime.GOOS {
	case "linux":
		return disableLinux()
	case "darwin":
		return disableMac()
	case "windows":
		return disableWindows()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	switch runtime.GOOS {
	case "linux":
		return isEnabledLinux()
	case "darwin":
		return isEnabledMac()
	case "windows":
		return isEnabledWindows()
	default:
		return false
	}
}

// Linux implementation: a systemd user unit. Writing the wants symlink
// by hand is what systemctl --user enable does.
func enableLinux() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	unitDir, err := systemdUserDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(unitDir, 0755); err != nil {
		return err
	}

	unitPath := filepath.Join(unitDir, unitName)

	tmpl, err := template.New("unit").Parse(systemdUserUnit)
	if err != nil {
		return err
	}

	f, err := os.Create(unitPath)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, struct{ ExecutablePath string }{execPath}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	wantsDir := filepath.Join(unitDir, "default.target.wants")
	if err := os.MkdirAll(wantsDir, 0755); err != nil {
		return err
	}

	linkPath := filepath.Join(wantsDir, unitName)
	if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(unitPath, linkPath)
}

func disableLinux() error {
	unitDir, err := systemdUserDir()
	if err != nil {
		return err
	}

	linkPath := filepath.Join(unitDir, "default.target.wants", unitName)
	if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	unitPath := filepath.Join(unitDir, unitName)
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func isEnabledLinux() bool {
	unitDir, err := systemdUserDir()
	if err != nil {
		return false
	}

	_, err = os.Stat(filepath.Join(unitDir, "default.target.wants", unitName))
	return err == nil
}

func systemdUserDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

// macOS implementation
func enableMac() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	launchAgentsDir := filepath.Join(home, "Library", "LaunchAgents")
	if err := os.MkdirAll(launchAgentsDir, 0755); err != nil {
		return err
	}

	plistPath := filepath.Join(launchAgentsDir, "com.hidserver.agent.plist")

	tmpl, err := template.New("plist").Parse(macLaunchAgentPlist)
	if err != nil {
		return err
	}

	f, err := os.Create(plistPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, struct{ ExecutablePath string }{execPath})
}

func disableMac() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	plistPath := filepath.Join(home, "Library", "LaunchAgents", "com.hidserver.agent.plist")
	if err := os.Remove(plistPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func isEnabledMac() bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	plistPath := filepath.Join(home, "Library", "LaunchAgents", "com.hidserver.agent.plist")
	_, err = os.Stat(plistPath)
	return err == nil
}

// Windows implementation (stub - requires golang.org/x/sys/windows/registry)
func enableWindows() error {
	// Note: Full implementation requires registry access
	// For now, provide instructions
	return fmt.Errorf("Windows auto-start not yet implemented. Add executable to shell:startup folder manually")
}

func disableWindows() error {
	return fmt.Errorf("Windows auto-start not yet implemented")
}

func isEnabledWindows() bool {
	return false
}
