// Package convert turns a LeRobot policy checkpoint into the OpenPI layout:
// tensor names lose the "model." prefix, observation and action feature names
// are remapped in the JSON configs, and companion files are copied verbatim.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/samcharles93/ckptconv/internal/jsondoc"
	"github.com/samcharles93/ckptconv/internal/logger"
	"github.com/samcharles93/ckptconv/internal/safetensors"
)

// Options configure a Converter.
type Options struct {
	// Rule renames tensors. Defaults to StripPrefix(LeRobotPrefix).
	Rule KeyRule

	// AllowCollisions keeps going when two tensors map to the same name; the
	// later one in sorted order wins. Otherwise Convert fails with ErrKeyCollision.
	AllowCollisions bool

	// Log receives progress narration. Defaults to logger.Default().
	Log logger.Logger
}

type Converter struct {
	rule            KeyRule
	allowCollisions bool
	log             logger.Logger
}

func New(opts Options) *Converter {
	if opts.Rule == nil {
		opts.Rule = StripPrefix(LeRobotPrefix)
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	return &Converter{
		rule:            opts.Rule,
		allowCollisions: opts.AllowCollisions,
		log:             opts.Log,
	}
}

// Summary reports what a conversion produced.
type Summary struct {
	RunID       string
	OutputDir   string
	WeightsPath string
	Tensors     int
	Renamed     int
	Dropped     int
	Configs     []string
	Copied      []string
	AssetFiles  int
}

// Convert converts the checkpoint at inputPath into outputDir. inputPath is
// either the weights archive or the directory containing it.
//
// Nothing is written when the input is missing or, unless collisions are
// allowed, when renamed keys collide. Later failures leave outputDir partially
// written.
func (c *Converter) Convert(ctx context.Context, inputPath, outputDir string) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), OutputDir: outputDir}
	log := c.log.With("run", sum.RunID)

	loc, err := ResolveInput(inputPath)
	if err != nil {
		return sum, err
	}

	log.Info("loading weights", "path", loc.WeightsPath, "input", loc.Kind.String())
	archive, err := safetensors.Load(loc.WeightsPath)
	if err != nil {
		return sum, fmt.Errorf("load weights: %w", err)
	}
	log.Info("loaded tensors", "count", archive.Len())

	plan := PlanKeys(archive.Names(), c.rule)
	for _, r := range plan.Renames {
		if r.Changed() {
			log.Info("rename", "from", r.From, "to", r.To)
		} else {
			log.Info("keep", "key", r.From)
		}
	}
	if len(plan.Collisions) > 0 {
		if !c.allowCollisions {
			return sum, collisionError(plan.Collisions)
		}
		for _, col := range plan.Collisions {
			for _, from := range col.From[:len(col.From)-1] {
				log.Warn("tensor overwritten by key collision", "dropped", from, "kept", col.From[len(col.From)-1], "key", col.To)
				sum.Dropped++
			}
		}
	}
	converted := RenameTensors(archive, plan)
	sum.Tensors = converted.Len()
	sum.Renamed = plan.Changed()

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return sum, fmt.Errorf("create output directory: %w", err)
	}

	sum.WeightsPath = filepath.Join(outputDir, WeightsFile)
	log.Info("saving converted weights", "path", sum.WeightsPath)
	if err := safetensors.Save(sum.WeightsPath, converted); err != nil {
		return sum, fmt.Errorf("save weights: %w", err)
	}

	if err := c.transformConfigs(ctx, log, loc, outputDir, &sum); err != nil {
		return sum, err
	}
	if err := c.copyAuxiliary(ctx, log, loc, outputDir, &sum); err != nil {
		return sum, err
	}

	log.Info("conversion complete", "output", outputDir, "tensors", sum.Tensors, "renamed", sum.Renamed)
	return sum, nil
}

func (c *Converter) transformConfigs(ctx context.Context, log logger.Logger, loc InputLocation, outputDir string, sum *Summary) error {
	docs := []struct {
		name string
		fn   func(*jsondoc.Object) ([]Rename, error)
	}{
		{ConfigFile, TransformConfig},
		{PreprocessorFile, TransformPreprocessor},
	}
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, ok := loc.sourcePath(d.name)
		if !ok {
			log.Debug("config not present", "file", d.name)
			continue
		}
		applied, err := transformDocument(src, filepath.Join(outputDir, d.name), d.fn)
		if err != nil {
			return fmt.Errorf("transform %s: %w", d.name, err)
		}
		for _, r := range applied {
			log.Debug("feature renamed", "file", d.name, "from", r.From, "to", r.To)
		}
		log.Info("transformed", "file", d.name, "features", len(applied))
		sum.Configs = append(sum.Configs, d.name)
	}
	return nil
}

func (c *Converter) copyAuxiliary(ctx context.Context, log logger.Logger, loc InputLocation, outputDir string, sum *Summary) error {
	for _, name := range AuxiliaryFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, ok := loc.sourcePath(name)
		if !ok {
			continue
		}
		log.Info("copying", "file", name)
		if err := copyFile(src, filepath.Join(outputDir, name)); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		sum.Copied = append(sum.Copied, name)
	}

	src, ok := loc.sourcePath(AssetsDir)
	if !ok {
		return nil
	}
	log.Info("copying assets directory", "path", src)
	n, err := copyTree(ctx, src, filepath.Join(outputDir, AssetsDir))
	sum.AssetFiles = n
	if err != nil {
		return fmt.Errorf("copy %s: %w", AssetsDir, err)
	}
	return nil
}

func collisionError(cols []Collision) error {
	errs := make([]error, 0, len(cols))
	for _, col := range cols {
		errs = append(errs, fmt.Errorf("%w: %s", ErrKeyCollision, col))
	}
	return errors.Join(errs...)
}
