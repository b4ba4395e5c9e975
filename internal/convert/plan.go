package convert

import (
	"context"
	"fmt"

	"github.com/samcharles93/ckptconv/internal/safetensors"
)

// TensorPlan describes how one tensor would be converted.
type TensorPlan struct {
	Rename
	DType string
	Shape []int64
	Bytes int64
}

// Plan is a dry run of Convert: what would be renamed, transformed and copied.
type Plan struct {
	Input      InputLocation
	Metadata   map[string]string
	Tensors    []TensorPlan
	Collisions []Collision
	Configs    []string
	Auxiliary  []string
	HasAssets  bool
	TotalBytes int64
}

// Plan reads only the archive header and reports what Convert would do.
func (c *Converter) Plan(ctx context.Context, inputPath string) (Plan, error) {
	loc, err := ResolveInput(inputPath)
	if err != nil {
		return Plan{}, err
	}
	h, err := safetensors.ReadHeader(loc.WeightsPath)
	if err != nil {
		return Plan{}, fmt.Errorf("read weights header: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}

	keys := PlanKeys(h.Names(), c.rule)
	p := Plan{
		Input:      loc,
		Metadata:   h.Metadata,
		Tensors:    make([]TensorPlan, 0, len(keys.Renames)),
		Collisions: keys.Collisions,
	}
	for _, r := range keys.Renames {
		ti := h.Tensors[r.From]
		p.Tensors = append(p.Tensors, TensorPlan{
			Rename: r,
			DType:  ti.DType,
			Shape:  ti.Shape,
			Bytes:  ti.Size(),
		})
		p.TotalBytes += ti.Size()
	}

	for _, name := range []string{ConfigFile, PreprocessorFile} {
		if _, ok := loc.sourcePath(name); ok {
			p.Configs = append(p.Configs, name)
		}
	}
	for _, name := range AuxiliaryFiles {
		if _, ok := loc.sourcePath(name); ok {
			p.Auxiliary = append(p.Auxiliary, name)
		}
	}
	_, p.HasAssets = loc.sourcePath(AssetsDir)
	return p, nil
}
