package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"lrc/internal/autostart"
)

func autostartCommand() *cli.Command {
	return &cli.Command{
		Name:  "autostart",
		Usage: "Manage starting the server at login",
		Subcommands: []*cli.Command{
			{
				Name:      "enable",
				Usage:     "Start the server at login; extra arguments are passed to serve",
				ArgsUsage: "[serve flags...]",
				Action: func(c *cli.Context) error {
					args := append([]string{"serve"}, c.Args().Slice()...)
					entry, err := autostart.CurrentEntry(args...)
					if err != nil {
						return err
					}
					if err := autostart.Enable(entry); err != nil {
						return fmt.Errorf("failed to enable autostart: %w", err)
					}
					where, _ := autostart.Location()
					fmt.Fprintf(c.App.Writer, "Autostart enabled (%s): %s\n", where, entry.CommandLine())
					return nil
				},
			},
			{
				Name:  "disable",
				Usage: "Stop starting at login",
				Action: func(c *cli.Context) error {
					if err := autostart.Disable(); err != nil {
						return fmt.Errorf("failed to disable autostart: %w", err)
					}
					fmt.Fprintln(c.App.Writer, "Autostart disabled")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Report whether autostart is enabled",
				Action: func(c *cli.Context) error {
					state := "disabled"
					if autostart.IsEnabled() {
						state = "enabled"
					}
					fmt.Fprintf(c.App.Writer, "Autostart %s\n", state)
					return nil
				},
			},
		},
	}
}
