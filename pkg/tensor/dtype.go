// Package tensor provides the dense, immutable tensor value stored in voras
// checkpoints: raw little-endian element bytes plus dtype and shape metadata.
package tensor

import "fmt"

// DType identifies the element type of a tensor.
type DType int

// Supported element types. Checkpoints only carry floating point weights.
const (
	Float32 DType = iota
	Float64
	Float16
)

// Size returns the byte size of one element.
func (dt DType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	case Float16:
		return 2
	}
	return 0
}

// String returns the dtype name used in serialized files.
func (dt DType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	}
	return fmt.Sprintf("dtype(%d)", int(dt))
}

// Valid reports whether dt is one of the supported element types.
func (dt DType) Valid() bool {
	return dt.Size() > 0
}

// ParseDType parses a dtype name as produced by DType.String.
func ParseDType(s string) (DType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "float16":
		return Float16, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedDType, s)
}
