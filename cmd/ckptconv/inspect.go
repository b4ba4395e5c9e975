package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ckptconv/internal/convert"
	"github.com/samcharles93/ckptconv/internal/logger"
)

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show how a checkpoint would be converted without writing anything",
		ArgsUsage: "<input_path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the plan as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usageError(cmd, "<input_path>")
			}
			conv := convert.New(convert.Options{Log: logger.FromContext(ctx)})
			plan, err := conv.Plan(ctx, cmd.Args().First())
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			if cmd.Bool("json") {
				return writePlanJSON(stdout(cmd), plan)
			}
			return writePlan(stdout(cmd), plan)
		},
	}
}

type tensorPlanJSON struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	DType string  `json:"dtype"`
	Shape []int64 `json:"shape"`
	Bytes int64   `json:"bytes"`
}

type planJSON struct {
	Input      string            `json:"input"`
	Kind       string            `json:"kind"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Tensors    []tensorPlanJSON  `json:"tensors"`
	TotalBytes int64             `json:"total_bytes"`
	Collisions []string          `json:"collisions,omitempty"`
	Configs    []string          `json:"configs"`
	Auxiliary  []string          `json:"auxiliary"`
	Assets     bool              `json:"assets"`
}

func writePlanJSON(w io.Writer, p convert.Plan) error {
	out := planJSON{
		Input:      p.Input.WeightsPath,
		Kind:       p.Input.Kind.String(),
		Metadata:   p.Metadata,
		Tensors:    make([]tensorPlanJSON, 0, len(p.Tensors)),
		TotalBytes: p.TotalBytes,
		Configs:    nonNil(p.Configs),
		Auxiliary:  nonNil(p.Auxiliary),
		Assets:     p.HasAssets,
	}
	for _, t := range p.Tensors {
		shape := t.Shape
		if shape == nil {
			shape = []int64{}
		}
		out.Tensors = append(out.Tensors, tensorPlanJSON{
			From:  t.From,
			To:    t.To,
			DType: t.DType,
			Shape: shape,
			Bytes: t.Bytes,
		})
	}
	for _, c := range p.Collisions {
		out.Collisions = append(out.Collisions, c.String())
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writePlan(w io.Writer, p convert.Plan) error {
	_, _ = fmt.Fprintf(w, "weights: %s (%s input)\n", p.Input.WeightsPath, p.Input.Kind)
	_, _ = fmt.Fprintf(w, "tensors: %d (%s)\n\n", len(p.Tensors), formatBytes(p.TotalBytes))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tNEW NAME\tDTYPE\tSHAPE\tBYTES")
	for _, t := range p.Tensors {
		to := t.To
		if !t.Changed() {
			to = "(no change)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", t.From, to, t.DType, formatShape(t.Shape), t.Bytes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "\nconfigs:   %s\n", listOrNone(p.Configs))
	_, _ = fmt.Fprintf(w, "auxiliary: %s\n", listOrNone(p.Auxiliary))
	_, _ = fmt.Fprintf(w, "assets:    %t\n", p.HasAssets)
	if len(p.Collisions) > 0 {
		_, _ = fmt.Fprintf(w, "\ncollisions (%d):\n", len(p.Collisions))
		for _, c := range p.Collisions {
			_, _ = fmt.Fprintf(w, "  %s\n", c)
		}
	}
	return nil
}

func formatShape(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
