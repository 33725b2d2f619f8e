package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "tradewire"
	app.Usage = "Build, send and inspect fixed-width length-prefixed trading messages."
	app.Version = version
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the configuration file (YAML or TOML)",
			EnvVars: []string{"TRADEWIRE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "schema",
			Aliases: []string{"s"},
			Usage:   "the message schema file, overrides the one named in the configuration",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "the log level: debug, info, warn or error",
		},
		&cli.BoolFlag{
			Name:  "log-json",
			Usage: "log JSON lines instead of console output",
		},
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "serve Prometheus metrics on this address, e.g. :9102",
		},
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Aliases:   []string{"e"},
			Usage:     "Encode a payload and print the body and frame in hex",
			ArgsUsage: " ",
			Action:    encodeCmd,
			Flags:     payloadFlags(),
		},
		{
			Name:      "decode",
			Aliases:   []string{"d"},
			Usage:     "Decode a hex frame or body",
			ArgsUsage: "HEX",
			Action:    decodeCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Usage:   "the message type, identified from the body when empty",
				},
				&cli.BoolFlag{
					Name:  "body",
					Usage: "the input is a bare body without a length header",
				},
				&cli.BoolFlag{
					Name:  "unscale",
					Usage: "print number and price fields with their scale applied",
				},
			},
		},
		{
			Name:   "send",
			Usage:  "Connect to the peer, send messages and print the responses",
			Action: sendCmd,
			Flags: append(payloadFlags(),
				&cli.IntFlag{
					Name:  "count",
					Value: 1,
					Usage: "how many times to send the message",
				},
				&cli.DurationFlag{
					Name:  "wait",
					Value: 3 * time.Second,
					Usage: "how long to wait for responses after the last send",
				},
			),
		},
		{
			Name:   "raw",
			Usage:  "Connect to the peer, send bytes as given and print whatever comes back",
			Action: rawCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "hex",
					Usage: "the bytes to send, in hex",
				},
				&cli.StringFlag{
					Name:  "text",
					Usage: "the bytes to send, as text",
				},
				&cli.BoolFlag{
					Name:  "frame",
					Usage: "prepend a length header in the configured framing",
				},
				&cli.IntFlag{
					Name:  "count",
					Value: 1,
					Usage: "how many times to send the bytes",
				},
				&cli.DurationFlag{
					Name:  "wait",
					Value: 3 * time.Second,
					Usage: "how long to wait for replies after the last send",
				},
			},
		},
		{
			Name:   "serve",
			Usage:  "Run an echo peer that keeps one client at a time",
			Action: serveCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "listen",
					Aliases: []string{"l"},
					Usage:   "the address to listen on, defaults to the configured host and port",
				},
				&cli.BoolFlag{
					Name:  "raw",
					Usage: "echo every chunk byte for byte instead of reassembled frames",
				},
				&cli.DurationFlag{
					Name:  "shutdown-timeout",
					Value: 5 * time.Second,
					Usage: "how long to wait for the client on shutdown",
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func payloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "type",
			Aliases:  []string{"t"},
			Usage:    "the message type",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "set",
			Usage: "a payload field as NAME=VALUE, repeatable",
		},
		&cli.StringFlag{
			Name:    "payload",
			Aliases: []string{"p"},
			Usage:   "a YAML or TOML file with payload fields; --set values win",
		},
	}
}
