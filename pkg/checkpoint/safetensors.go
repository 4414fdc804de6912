package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/nadare881/rvc-webui/pkg/tensor"
)

// SafeTensors layout: uint64 LE header length, JSON header, raw tensor data.
const (
	safetensorsMetadataKey = "__metadata__"
	maxSafeTensorsHeader   = 100 << 20
)

type safetensorsEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

func safetensorsDType(dt tensor.DType) (string, error) {
	switch dt {
	case tensor.Float16:
		return "F16", nil
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	}
	return "", fmt.Errorf("%w: %s", tensor.ErrUnsupportedDType, dt)
}

func parseSafetensorsDType(s string) (tensor.DType, error) {
	switch s {
	case "F16":
		return tensor.Float16, nil
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	}
	return 0, fmt.Errorf("%w: %q", tensor.ErrUnsupportedDType, s)
}

// ReadSafeTensors imports weights from a SafeTensors stream. Only floating
// point tensors (F16, F32, F64) are accepted.
func ReadSafeTensors(r io.Reader) (map[string]*tensor.Tensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("%w: read header size: %w", ErrDecode, err)
	}
	if headerSize > maxSafeTensorsHeader {
		return nil, nil, fmt.Errorf("%w: header size %d too large", ErrDecode, headerSize)
	}
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("%w: read header: %w", ErrDecode, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(header, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: parse header: %w", ErrDecode, err)
	}
	var metadata map[string]string
	if m, ok := raw[safetensorsMetadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, fmt.Errorf("%w: parse metadata: %w", ErrDecode, err)
		}
		delete(raw, safetensorsMetadataKey)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read data: %w", ErrIO, err)
	}

	weights := make(map[string]*tensor.Tensor, len(raw))
	for name, msg := range raw {
		var e safetensorsEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, nil, fmt.Errorf("%w: tensor %q: %w", ErrDecode, name, err)
		}
		dt, err := parseSafetensorsDType(e.DType)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: tensor %q: %w", ErrDecode, name, err)
		}
		start, end := e.DataOffsets[0], e.DataOffsets[1]
		if start < 0 || end < start || end > int64(len(data)) {
			return nil, nil, fmt.Errorf("%w: tensor %q: data offsets [%d, %d] out of range", ErrDecode, name, start, end)
		}
		t, err := tensor.New(dt, e.Shape, data[start:end:end])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: tensor %q: %w", ErrDecode, name, err)
		}
		weights[name] = t
	}
	return weights, metadata, nil
}

// WriteSafeTensors exports weights in SafeTensors format with tensors laid
// out in name order.
func WriteSafeTensors(w io.Writer, weights map[string]*tensor.Tensor, metadata map[string]string) error {
	names := slices.Sorted(maps.Keys(weights))

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[safetensorsMetadataKey] = metadata
	}
	var offset int64
	for _, name := range names {
		t := weights[name]
		if t == nil {
			return fmt.Errorf("%w: tensor %q: nil", ErrEncode, name)
		}
		dt, err := safetensorsDType(t.DType())
		if err != nil {
			return fmt.Errorf("%w: tensor %q: %w", ErrEncode, name, err)
		}
		shape := t.Shape()
		if shape == nil {
			shape = []int{}
		}
		size := int64(t.ByteSize())
		header[name] = safetensorsEntry{
			DType:       dt,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("%w: marshal header: %w", ErrEncode, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("%w: write header size: %w", ErrIO, err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrIO, err)
	}
	for _, name := range names {
		if _, err := w.Write(weights[name].Bytes()); err != nil {
			return fmt.Errorf("%w: write tensor %q: %w", ErrIO, name, err)
		}
	}
	return nil
}
