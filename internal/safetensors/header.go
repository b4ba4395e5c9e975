// Package safetensors reads and writes the safetensors tensor archive format.
//
// A file is an 8-byte little-endian header length, a JSON header mapping tensor
// names to dtype/shape/data_offsets (plus an optional "__metadata__" string map),
// and the raw tensor bytes. Tensor payloads are treated as opaque.
package safetensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// MetadataKey is the reserved header entry holding archive-level string metadata.
const MetadataKey = "__metadata__"

const (
	// Real-world headers are typically in the KBs.
	maxHeaderSize = 256 << 20 // 256 MiB
)

var (
	ErrHeaderTooLarge = errors.New("safetensors: header too large")
	ErrCorrupt        = errors.New("safetensors: corrupt file")
)

// TensorInfo describes a tensor payload. Start/End are relative to the data
// region (End is exclusive), as stored in the header.
type TensorInfo struct {
	DType string
	Shape []int64
	Start int64
	End   int64
}

func (ti TensorInfo) Size() int64 { return ti.End - ti.Start }

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int64 `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// Header is the parsed header of a safetensors file.
type Header struct {
	Path      string
	DataStart int64
	DataLen   int64
	Metadata  map[string]string
	Tensors   map[string]TensorInfo
}

// Names returns the tensor names in sorted order.
func (h *Header) Names() []string {
	out := make([]string, 0, len(h.Tensors))
	for name := range h.Tensors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReadHeader parses and validates the header of the file at path without
// reading tensor payloads.
func ReadHeader(path string) (*Header, error) {
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
	h.Path = path
	return h, nil
}

func parseHeader(r io.Reader, fileSize int64) (*Header, error) {
	if fileSize < 8 {
		return nil, fmt.Errorf("%w: file too small", ErrCorrupt)
	}
	headerLenU64, err := readU64(r)
	if err != nil {
		return nil, err
	}
	if headerLenU64 > maxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerLenU64)
	}
	headerLen := int64(headerLenU64)
	if 8+headerLen > fileSize {
		return nil, fmt.Errorf("%w: header exceeds file size", ErrCorrupt)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse header: %v", ErrCorrupt, err)
	}

	h := &Header{
		DataStart: 8 + headerLen,
		DataLen:   fileSize - 8 - headerLen,
		Tensors:   make(map[string]TensorInfo, len(raw)),
	}

	if msg, ok := raw[MetadataKey]; ok {
		if err := json.Unmarshal(msg, &h.Metadata); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, MetadataKey, err)
		}
		delete(raw, MetadataKey)
	}

	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("%w: parse tensor %q: %v", ErrCorrupt, name, err)
		}
		ti, err := th.info(name, h.DataLen)
		if err != nil {
			return nil, err
		}
		h.Tensors[name] = ti
	}
	return h, nil
}

func (th tensorHeader) info(name string, dataLen int64) (TensorInfo, error) {
	if len(th.DataOffsets) != 2 {
		return TensorInfo{}, fmt.Errorf("%w: tensor %q: invalid data_offsets", ErrCorrupt, name)
	}
	start, end := th.DataOffsets[0], th.DataOffsets[1]
	if start < 0 || end < start {
		return TensorInfo{}, fmt.Errorf("%w: tensor %q: invalid offsets", ErrCorrupt, name)
	}
	if end > dataLen {
		return TensorInfo{}, fmt.Errorf("%w: tensor %q: out-of-bounds data range", ErrCorrupt, name)
	}
	n, err := numElements(th.Shape)
	if err != nil {
		return TensorInfo{}, fmt.Errorf("%w: tensor %q: %v", ErrCorrupt, name, err)
	}
	if sz, ok := DTypeSize(th.DType); ok && n*sz != end-start {
		return TensorInfo{}, fmt.Errorf("%w: tensor %q: %s%v needs %d bytes, header has %d",
			ErrCorrupt, name, th.DType, th.Shape, n*sz, end-start)
	}
	return TensorInfo{
		DType: th.DType,
		Shape: th.Shape,
		Start: start,
		End:   end,
	}, nil
}

// numElements returns the element count of shape. An empty shape is a scalar.
func numElements(shape []int64) (int64, error) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("invalid dim %d", d)
		}
		if d != 0 && n > (1<<62)/d {
			return 0, errors.New("tensor too large")
		}
		n *= d
	}
	return n, nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
