package safetensors

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Tensor is a named tensor held in memory. Data is the raw little-endian payload.
type Tensor struct {
	DType string
	Shape []int64
	Data  []byte
}

// Archive is an in-memory tensor mapping plus archive metadata.
type Archive struct {
	Metadata map[string]string
	Tensors  map[string]Tensor
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{Tensors: make(map[string]Tensor)}
}

func (a *Archive) Len() int { return len(a.Tensors) }

// Names returns the tensor names in sorted order.
func (a *Archive) Names() []string {
	out := make([]string, 0, len(a.Tensors))
	for name := range a.Tensors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load reads every tensor of the file at path into memory.
func Load(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	h, err := parseHeader(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}

	a := &Archive{
		Metadata: h.Metadata,
		Tensors:  make(map[string]Tensor, len(h.Tensors)),
	}
	for _, name := range h.Names() {
		ti := h.Tensors[name]
		buf := make([]byte, ti.Size())
		if _, err := f.ReadAt(buf, h.DataStart+ti.Start); err != nil {
			return nil, fmt.Errorf("read tensor %s: %w", name, err)
		}
		a.Tensors[name] = Tensor{DType: ti.DType, Shape: ti.Shape, Data: buf}
	}
	return a, nil
}

// Save writes a to path, replacing any existing file.
func Save(path string, a *Archive) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err := Encode(w, a); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encode writes a in safetensors format. Tensors are laid out contiguously in
// sorted name order and the header is space-padded to an 8-byte boundary, so
// equal archives always encode to identical bytes.
func Encode(w io.Writer, a *Archive) error {
	names := a.Names()
	header, err := encodeHeader(a, names)
	if err != nil {
		return err
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(header)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write header size: %w", err)
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(a.Tensors[name].Data); err != nil {
			return fmt.Errorf("write tensor %s: %w", name, err)
		}
	}
	return nil
}

func encodeHeader(a *Archive, names []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeEntry := func(key string, v any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal header entry %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if len(a.Metadata) > 0 {
		if err := writeEntry(MetadataKey, a.Metadata); err != nil {
			return nil, err
		}
	}

	var offset int64
	for _, name := range names {
		t := a.Tensors[name]
		shape := t.Shape
		if shape == nil {
			shape = []int64{}
		}
		size := int64(len(t.Data))
		th := tensorHeader{
			DType:       t.DType,
			Shape:       shape,
			DataOffsets: []int64{offset, offset + size},
		}
		if err := writeEntry(name, th); err != nil {
			return nil, err
		}
		offset += size
	}
	buf.WriteByte('}')

	for buf.Len()%8 != 0 {
		buf.WriteByte(' ')
	}
	return buf.Bytes(), nil
}
