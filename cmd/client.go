package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"lrc/internal/config"
	"lrc/internal/logging"
	"lrc/internal/network"
	"lrc/internal/protocol"
)

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Scan the local /24 network for running servers",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultConfig().Port,
				Usage:   "Port to probe",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Second,
				Usage: "Overall scan timeout",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			port := c.Int("port")
			fmt.Fprintf(c.App.Writer, "Scanning for servers on port %d...\n", port)

			hosts, err := network.ScanLAN(ctx, port)
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				fmt.Fprintln(c.App.Writer, "No servers found")
				return nil
			}
			for _, h := range hosts {
				fmt.Fprintf(c.App.Writer, "  %s  stream: http://%s/stream?token=...  control: ws://%s/ws\n", h.Addr(), h.Addr(), h.Addr())
			}
			return nil
		},
	}
}

func controlCommand() *cli.Command {
	return &cli.Command{
		Name:      "control",
		Usage:     "Authenticate against a server and send one control event",
		ArgsUsage: "<event> [args...]",
		Description: `Events:
  move <nx> <ny>          move the pointer, coordinates in [0,1]
  click [button]          click (left, middle, right)
  dblclick [button]       double click
  down [button]           press a button
  up [button]             release a button
  type <text...>          type text
  key <name>              press a named key (enter, esc, f5, ...)
  scroll <dy> [dx]        scroll, positive dy is up

Example:
  lrc control --server 192.168.1.20:8010 move 0.5 0.5`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "server",
				Aliases:  []string{"s"},
				Usage:    "Server address host:port",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				EnvVars: []string{config.EnvPrefix + "PASSWORD"},
				Value:   config.DefaultPassword,
				Usage:   "Control password",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Second,
				Usage: "Connect and authenticate timeout",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Development logging",
			},
		},
		Action: runControl,
	}
}

func runControl(c *cli.Context) error {
	kind, payload, err := buildEvent(c.Args().Slice())
	if err != nil {
		return err
	}

	logger, err := logging.New("warn", c.Bool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	client, err := network.DialController(ctx, c.String("server"), c.String("password"), logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Send(kind, payload); err != nil {
		return err
	}
	logger.Debug("Sent event", zap.String("type", string(kind)))

	// The server only answers events with an error notice; give it a moment
	select {
	case msg, ok := <-client.Notices():
		if ok && msg.Type == protocol.TypeError {
			return fmt.Errorf("server replied: %s", msg.Payload)
		}
	case <-time.After(300 * time.Millisecond):
	}

	fmt.Fprintf(c.App.Writer, "Sent %s\n", kind)
	return nil
}

// buildEvent turns command-line words into a control event.
func buildEvent(args []string) (protocol.MessageType, interface{}, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("missing event, see --help")
	}
	name, rest := strings.ToLower(args[0]), args[1:]

	button := func() (string, error) {
		switch len(rest) {
		case 0:
			return "left", nil
		case 1:
			return rest[0], nil
		default:
			return "", fmt.Errorf("%s takes at most one button", name)
		}
	}

	switch name {
	case "move":
		if len(rest) != 2 {
			return "", nil, fmt.Errorf("move needs <nx> <ny>")
		}
		nx, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad nx %q", rest[0])
		}
		ny, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad ny %q", rest[1])
		}
		return protocol.TypeMouseMove, protocol.MovePayload{NX: nx, NY: ny}, nil

	case "click", "dblclick":
		b, err := button()
		if err != nil {
			return "", nil, err
		}
		return protocol.TypeMouseClick, protocol.ClickPayload{Button: b, Double: name == "dblclick"}, nil

	case "down", "up":
		b, err := button()
		if err != nil {
			return "", nil, err
		}
		kind := protocol.TypeMouseDown
		if name == "up" {
			kind = protocol.TypeMouseUp
		}
		return kind, protocol.ButtonPayload{Button: b}, nil

	case "type":
		if len(rest) == 0 {
			return "", nil, fmt.Errorf("type needs text")
		}
		return protocol.TypeKeyType, protocol.TextPayload{Text: strings.Join(rest, " ")}, nil

	case "key":
		if len(rest) != 1 {
			return "", nil, fmt.Errorf("key needs exactly one key name")
		}
		return protocol.TypeKeyPress, protocol.KeyPayload{Key: rest[0]}, nil

	case "scroll":
		if len(rest) < 1 || len(rest) > 2 {
			return "", nil, fmt.Errorf("scroll needs <dy> [dx]")
		}
		var p protocol.ScrollPayload
		var err error
		if p.DY, err = strconv.Atoi(rest[0]); err != nil {
			return "", nil, fmt.Errorf("bad dy %q", rest[0])
		}
		if len(rest) == 2 {
			if p.DX, err = strconv.Atoi(rest[1]); err != nil {
				return "", nil, fmt.Errorf("bad dx %q", rest[1])
			}
		}
		return protocol.TypeMouseScroll, p, nil

	default:
		return "", nil, fmt.Errorf("unknown event %q", name)
	}
}
