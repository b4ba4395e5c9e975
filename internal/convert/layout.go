package convert

import (
	"fmt"
	"os"
	"path/filepath"
)

// Canonical names in a LeRobot policy checkpoint directory.
const (
	WeightsFile      = "model.safetensors"
	ConfigFile       = "config.json"
	PreprocessorFile = "policy_preprocessor.json"
	AssetsDir        = "assets"
)

// AuxiliaryFiles are copied byte-for-byte when present in the source directory.
var AuxiliaryFiles = []string{
	"train_config.json",
	"policy_postprocessor.json",
	"policy_preprocessor_step_2_normalizer_processor.safetensors",
	"policy_postprocessor_step_0_unnormalizer_processor.safetensors",
}

// InputKind distinguishes how the user named the checkpoint.
type InputKind int

const (
	// FileInput means the path names the weights archive itself.
	FileInput InputKind = iota
	// DirInput means the path is a checkpoint directory.
	DirInput
)

func (k InputKind) String() string {
	switch k {
	case FileInput:
		return "file"
	case DirInput:
		return "directory"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// InputLocation is a resolved checkpoint input: the weights archive and the
// directory holding its configs and companion files.
type InputLocation struct {
	Kind        InputKind
	WeightsPath string
	SourceDir   string
}

// NewInputLocation resolves path without touching the filesystem.
func NewInputLocation(path string, isDir bool) InputLocation {
	path = filepath.Clean(path)
	if isDir {
		return InputLocation{
			Kind:        DirInput,
			WeightsPath: filepath.Join(path, WeightsFile),
			SourceDir:   path,
		}
	}
	return InputLocation{
		Kind:        FileInput,
		WeightsPath: path,
		SourceDir:   filepath.Dir(path),
	}
}

// ResolveInput inspects path on disk and checks the weights archive exists.
// It returns ErrMissingInput when it does not.
func ResolveInput(path string) (InputLocation, error) {
	st, err := os.Stat(path)
	isDir := err == nil && st.IsDir()
	loc := NewInputLocation(path, isDir)

	wst, err := os.Stat(loc.WeightsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return InputLocation{}, fmt.Errorf("%w: %s", ErrMissingInput, loc.WeightsPath)
		}
		return InputLocation{}, err
	}
	if wst.IsDir() {
		return InputLocation{}, fmt.Errorf("%w: %s is a directory", ErrMissingInput, loc.WeightsPath)
	}
	return loc, nil
}

// sourcePath returns name inside the source directory and whether it exists.
func (l InputLocation) sourcePath(name string) (string, bool) {
	p := filepath.Join(l.SourceDir, name)
	_, err := os.Stat(p)
	return p, err == nil
}
