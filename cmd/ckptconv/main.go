package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ckptconv/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "ckptconv",
		Usage:     "Convert a LeRobot policy checkpoint to the OpenPI layout",
		ArgsUsage: "<input_path> <output_dir>",
		Description: "input_path is a model.safetensors file or the checkpoint directory holding it.\n" +
			"An input path spelled like a subcommand (inspect, version) is taken as that\n" +
			"subcommand; write it as ./inspect or ./version instead.",
		Version: version.String(),
		Flags:   append(loggingFlags(), conversionFlags()...),
		Before:  setup,
		Action:  convertAction,
		Commands: []*cli.Command{
			inspectCmd(),
			versionCmd(),
		},
	}
}
