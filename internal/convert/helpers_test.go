package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/ckptconv/internal/logger"
	"github.com/samcharles93/ckptconv/internal/safetensors"
)

// writeWeights saves a U8 archive whose payload for each name is its value.
func writeWeights(t *testing.T, path string, tensors map[string]string) {
	t.Helper()
	a := safetensors.NewArchive()
	a.Metadata = map[string]string{"format": "pt"}
	for name, payload := range tensors {
		a.Tensors[name] = safetensors.Tensor{
			DType: "U8",
			Shape: []int64{int64(len(payload))},
			Data:  []byte(payload),
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, safetensors.Save(path, a))
}

// readPayloads loads an archive and returns name -> payload.
func readPayloads(t *testing.T, path string) map[string]string {
	t.Helper()
	a, err := safetensors.Load(path)
	require.NoError(t, err)
	out := make(map[string]string, a.Len())
	for name, tensor := range a.Tensors {
		out[name] = string(tensor.Data)
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func quietConverter(opts Options) *Converter {
	opts.Log = logger.Discard()
	return New(opts)
}
