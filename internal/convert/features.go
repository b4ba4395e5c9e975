package convert

import (
	"errors"
	"fmt"

	"github.com/samcharles93/ckptconv/internal/jsondoc"
)

// ObservationRenames maps LeRobot observation feature names to OpenPI ones.
var ObservationRenames = map[string]string{
	"observation.images.scene":   "observation/image",
	"observation.images.gripper": "observation/wrist_image",
	"observation.state":          "observation/state",
}

// ActionRenames maps LeRobot action feature names to OpenPI ones.
var ActionRenames = map[string]string{
	"action": "actions",
}

// NormalizerRegistryName identifies the preprocessor step whose feature map is
// keyed by observation names.
const NormalizerRegistryName = "normalizer_processor"

// TransformConfig renames the keys of input_features and output_features in a
// policy config.json document. Absent sections are skipped.
func TransformConfig(doc *jsondoc.Object) ([]Rename, error) {
	var applied []Rename
	in, err := renameFieldKeys(doc, "input_features", ObservationRenames)
	if err != nil {
		return nil, err
	}
	applied = append(applied, in...)

	out, err := renameFieldKeys(doc, "output_features", ActionRenames)
	if err != nil {
		return nil, err
	}
	return append(applied, out...), nil
}

// TransformPreprocessor renames observation keys in config.features of every
// step registered as NormalizerRegistryName. Steps that are not objects, or
// lack config.features, are left as they are.
func TransformPreprocessor(doc *jsondoc.Object) ([]Rename, error) {
	if !doc.Has("steps") {
		return nil, nil
	}
	steps, ok := doc.GetArray("steps")
	if !ok {
		return nil, fmt.Errorf("steps: %w", errNotArray)
	}

	var applied []Rename
	for i, raw := range steps {
		step, err := jsondoc.Decode(raw)
		if err != nil {
			continue
		}
		if name, _ := step.GetString("registry_name"); name != NormalizerRegistryName {
			continue
		}
		cfg, ok := step.GetObject("config")
		if !ok || !cfg.Has("features") {
			continue
		}
		renamed, err := renameFieldKeys(cfg, "features", ObservationRenames)
		if err != nil {
			return nil, fmt.Errorf("steps[%d].config: %w", i, err)
		}
		if err := step.SetObject("config", cfg); err != nil {
			return nil, err
		}
		encoded, err := step.MarshalJSON()
		if err != nil {
			return nil, err
		}
		steps[i] = encoded
		applied = append(applied, renamed...)
	}
	if err := doc.SetArray("steps", steps); err != nil {
		return nil, err
	}
	return applied, nil
}

var errNotArray = errors.New("expected a JSON array")

// renameFieldKeys replaces the object under field with a copy whose keys are
// renamed through table.
func renameFieldKeys(doc *jsondoc.Object, field string, table map[string]string) ([]Rename, error) {
	raw, ok := doc.Get(field)
	if !ok {
		return nil, nil
	}
	obj, err := jsondoc.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	var applied []Rename
	for _, key := range obj.Keys() {
		if to, ok := table[key]; ok {
			applied = append(applied, Rename{From: key, To: to})
		}
	}
	if err := doc.SetObject(field, obj.RenameKeys(table)); err != nil {
		return nil, err
	}
	return applied, nil
}

// transformDocument reads src, applies fn and writes the result to dst.
func transformDocument(src, dst string, fn func(*jsondoc.Object) ([]Rename, error)) ([]Rename, error) {
	doc, err := jsondoc.ReadFile(src)
	if err != nil {
		return nil, err
	}
	applied, err := fn(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	if err := jsondoc.WriteFile(dst, doc, 0o644); err != nil {
		return nil, err
	}
	return applied, nil
}
