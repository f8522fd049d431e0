//go:build !windows

package autostart

import (
	"os"
	"strings"
	"testing"
)

func TestEnableDisableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Fatalf("Location() = %q, want under %q", path, dir)
	}

	if IsEnabled() {
		t.Fatal("enabled before Enable")
	}
	if err := Enable(Entry{Executable: "/usr/bin/lrc", Args: []string{"serve"}}); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !IsEnabled() {
		t.Fatal("not enabled after Enable")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "/usr/bin/lrc") {
		t.Errorf("login item does not name the executable:\n%s", data)
	}

	if err := Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if IsEnabled() {
		t.Error("still enabled after Disable")
	}
	if err := Disable(); err != nil {
		t.Errorf("second Disable: %v", err)
	}
}
