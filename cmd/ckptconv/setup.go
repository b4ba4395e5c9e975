package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ckptconv/internal/logger"
)

type settingsKey struct{}

// setup merges flags with the config file and installs the logger in ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	s := resolveSettings(cmd, LoadConfig())

	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return ctx, err
	}
	w := stdout(cmd)
	log, err := logger.Build(w, resolveFormat(s.LogFormat, w), level)
	if err != nil {
		return ctx, err
	}

	ctx = logger.WithContext(ctx, log)
	return context.WithValue(ctx, settingsKey{}, s), nil
}

func settingsFrom(ctx context.Context) settings {
	if s, ok := ctx.Value(settingsKey{}).(settings); ok {
		return s
	}
	return settings{}
}

// resolveFormat maps "auto" to pretty on terminals and text elsewhere.
func resolveFormat(format string, w io.Writer) string {
	if !strings.EqualFold(strings.TrimSpace(format), "auto") {
		return format
	}
	if f, ok := w.(*os.File); ok && isTerminal(f.Fd()) {
		return logger.FormatPretty
	}
	return logger.FormatText
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func usageError(cmd *cli.Command, want string) error {
	return fmt.Errorf("%s: expected %s, got %d argument(s)", cmd.FullName(), want, cmd.Args().Len())
}
