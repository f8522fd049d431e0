// Package autostart registers the server to start when the user logs in.
package autostart

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Label identifies the login item on every platform.
const Label = "com.lrc.server"

// Entry is the command run at login.
type Entry struct {
	Executable string
	Args       []string
}

// CurrentEntry runs this executable with args.
func CurrentEntry(args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return Entry{Executable: exe, Args: args}, nil
}

// CommandLine quotes the executable and any argument containing spaces.
func (e Entry) CommandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	parts = append(parts, quote(e.Executable))
	for _, a := range e.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{html .Executable}}</string>
{{- range .Args}}
        <string>{{html .}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`))

var desktopTemplate = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name=LAN Remote Control
Comment=Screen stream and remote input server
Exec={{.CommandLine}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`))

type templateData struct {
	Entry
	Label string
}

// renderPlist returns a macOS LaunchAgent definition for e.
func renderPlist(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, templateData{Entry: e, Label: Label}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderDesktop returns an XDG autostart entry for e.
func renderDesktop(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := desktopTemplate.Execute(&buf, templateData{Entry: e, Label: Label}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
