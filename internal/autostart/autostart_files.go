//go:build !windows

package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Location returns the file that makes e start at login.
func Location() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "autostart", Label+".desktop"), nil
	}
}

// Enable writes the login item for e, replacing any previous one.
func Enable(e Entry) error {
	path, err := Location()
	if err != nil {
		return err
	}

	var data []byte
	if runtime.GOOS == "darwin" {
		data, err = renderPlist(e)
	} else {
		data, err = renderDesktop(e)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Disable removes the login item. It is not an error if none exists.
func Disable() error {
	path, err := Location()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	path, err := Location()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
