// LRC - LAN Remote Control
// Streams the primary display as MJPEG and accepts mouse and keyboard
// events from an authenticated controller on the local network.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	Version   = "0.1.0"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "lrc",
		Usage:   "LAN remote control: screen stream and input control over HTTP",
		Version: Version,
		Commands: []*cli.Command{
			serveCommand(),
			discoverCommand(),
			controlCommand(),
			autostartCommand(),
			versionCommand(),
		},
		// No subcommand runs the server, like the original single-purpose binary
		Flags:  serveFlags(),
		Action: runServe,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "LAN Remote Control\n")
			fmt.Fprintf(c.App.Writer, "Version:    %s\n", Version)
			fmt.Fprintf(c.App.Writer, "Commit:     %s\n", Commit)
			fmt.Fprintf(c.App.Writer, "Build Date: %s\n", BuildDate)
			return nil
		},
	}
}
