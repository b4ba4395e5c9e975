package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ckptconv/internal/convert"
	"github.com/samcharles93/ckptconv/internal/logger"
)

func convertAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		if cmd.Args().Len() == 0 {
			_ = cli.ShowAppHelp(cmd)
		}
		return usageError(cmd, "<input_path> <output_dir>")
	}
	inputPath := cmd.Args().Get(0)
	outputDir := cmd.Args().Get(1)

	conv := convert.New(convert.Options{
		AllowCollisions: settingsFrom(ctx).AllowCollisions,
		Log:             logger.FromContext(ctx),
	})
	sum, err := conv.Convert(ctx, inputPath, outputDir)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	w := stdout(cmd)
	_, _ = fmt.Fprintf(w, "\nConversion complete! Output saved to: %s\n", sum.OutputDir)
	_, _ = fmt.Fprintf(w, "Total tensors converted: %d\n", sum.Tensors)
	return nil
}
