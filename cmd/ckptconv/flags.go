package main

import "github.com/urfave/cli/v3"

const (
	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
	flagDebug           = "debug"
	flagAllowCollisions = "allow-collisions"
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  flagLogFormat,
			Usage: "log format (auto, pretty, text, json)",
			Value: "auto",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging (shorthand for --log-level=debug)",
		},
	}
}

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  flagAllowCollisions,
			Usage: "keep going when two tensors map to the same name (the later name in sorted order wins)",
		},
	}
}
