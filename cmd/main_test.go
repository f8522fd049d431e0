package main

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"lrc/internal/config"
	"lrc/internal/protocol"
)

func TestBuildEvent(t *testing.T) {
	tests := []struct {
		args    []string
		kind    protocol.MessageType
		payload interface{}
	}{
		{[]string{"move", "0.5", "0.25"}, protocol.TypeMouseMove, protocol.MovePayload{NX: 0.5, NY: 0.25}},
		{[]string{"click"}, protocol.TypeMouseClick, protocol.ClickPayload{Button: "left"}},
		{[]string{"CLICK", "right"}, protocol.TypeMouseClick, protocol.ClickPayload{Button: "right"}},
		{[]string{"dblclick"}, protocol.TypeMouseClick, protocol.ClickPayload{Button: "left", Double: true}},
		{[]string{"down", "middle"}, protocol.TypeMouseDown, protocol.ButtonPayload{Button: "middle"}},
		{[]string{"up"}, protocol.TypeMouseUp, protocol.ButtonPayload{Button: "left"}},
		{[]string{"type", "hello", "world"}, protocol.TypeKeyType, protocol.TextPayload{Text: "hello world"}},
		{[]string{"key", "enter"}, protocol.TypeKeyPress, protocol.KeyPayload{Key: "enter"}},
		{[]string{"scroll", "-3"}, protocol.TypeMouseScroll, protocol.ScrollPayload{DY: -3}},
		{[]string{"scroll", "1", "2"}, protocol.TypeMouseScroll, protocol.ScrollPayload{DY: 1, DX: 2}},
	}

	for _, tt := range tests {
		kind, payload, err := buildEvent(tt.args)
		if err != nil {
			t.Errorf("buildEvent(%v): %v", tt.args, err)
			continue
		}
		if kind != tt.kind || !reflect.DeepEqual(payload, tt.payload) {
			t.Errorf("buildEvent(%v) = %s %+v, want %s %+v", tt.args, kind, payload, tt.kind, tt.payload)
		}
	}
}

func TestBuildEventErrors(t *testing.T) {
	bad := [][]string{
		nil,
		{"teleport"},
		{"move", "0.5"},
		{"move", "x", "0.5"},
		{"click", "left", "right"},
		{"type"},
		{"key"},
		{"key", "a", "b"},
		{"scroll"},
		{"scroll", "up"},
		{"scroll", "1", "2", "3"},
	}
	for _, args := range bad {
		if _, _, err := buildEvent(args); err == nil {
			t.Errorf("buildEvent(%v) succeeded, want error", args)
		}
	}
}

func runWithServeFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	chdir(t, t.TempDir())

	var (
		cfg *config.Config
		err error
	)
	app := &cli.App{
		Flags: serveFlags(),
		Action: func(c *cli.Context) error {
			cfg, err = loadConfig(c)
			return nil
		},
	}
	if runErr := app.Run(append([]string{"lrc"}, args...)); runErr != nil {
		t.Fatalf("app.Run: %v", runErr)
	}
	return cfg, err
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LRC_PORT", "8100")
	t.Setenv("LRC_FPS", "20")
	t.Setenv("LRC_PASSWORD", "from-env")

	cfg, err := runWithServeFlags(t, "--port", "9000", "--quality", "150", "--host", "127.0.0.1")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want flag value 9000", cfg.Port)
	}
	if cfg.FPS != 20 {
		t.Errorf("FPS = %d, want env value 20", cfg.FPS)
	}
	if cfg.JPEGQuality != 100 {
		t.Errorf("JPEGQuality = %d, want clamped 100", cfg.JPEGQuality)
	}
	if cfg.Host != "127.0.0.1" || cfg.Password != "from-env" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	if _, err := runWithServeFlags(t, "--fps", "0"); err == nil {
		t.Error("fps 0 accepted")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	if err := app.Run([]string{"lrc", "version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "Version:    "+Version) {
		t.Errorf("output = %q", out.String())
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}
