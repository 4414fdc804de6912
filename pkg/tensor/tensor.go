package tensor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/x448/float16"
)

// Sentinel errors.
var (
	ErrUnsupportedDType = errors.New("tensor: unsupported dtype")
	ErrInvalidShape     = errors.New("tensor: invalid shape")
	ErrShapeMismatch    = errors.New("tensor: data length does not match shape")
)

// Tensor is a dense multi-dimensional array. Element data is kept as raw
// little-endian bytes so that it can be written to disk without conversion.
//
// A Tensor is never mutated after construction; Bytes returns a view that
// callers must treat as read-only.
type Tensor struct {
	dtype DType
	shape []int
	data  []byte
}

// New creates a tensor from raw little-endian element bytes. The data slice
// is retained, not copied.
func New(dtype DType, shape []int, data []byte) (*Tensor, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDType, dtype)
	}
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt/dtype.Size() {
		return nil, fmt.Errorf("%w: %v %s is too large", ErrInvalidShape, shape, dtype)
	}
	if want := n * dtype.Size(); len(data) != want {
		return nil, fmt.Errorf("%w: shape %v %s needs %d bytes, got %d",
			ErrShapeMismatch, shape, dtype, want, len(data))
	}
	return &Tensor{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// FromFloat32 creates a float32 tensor with the given shape.
func FromFloat32(shape []int, values []float32) (*Tensor, error) {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return New(Float32, shape, data)
}

// FromFloat64 creates a float64 tensor with the given shape.
func FromFloat64(shape []int, values []float64) (*Tensor, error) {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return New(Float64, shape, data)
}

// FromFloat16 creates a half precision tensor with the given shape.
func FromFloat16(shape []int, values []float16.Float16) (*Tensor, error) {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], v.Bits())
	}
	return New(Float16, shape, data)
}

// MustFromFloat32 is like FromFloat32 but panics on error. Intended for
// tests and static fixtures.
func MustFromFloat32(shape []int, values []float32) *Tensor {
	t, err := FromFloat32(shape, values)
	if err != nil {
		panic(err)
	}
	return t
}

// DType returns the element type.
func (t *Tensor) DType() DType { return t.dtype }

// Shape returns a copy of the tensor shape.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	n, _ := numElements(t.shape)
	return n
}

// ByteSize returns the size of the element data in bytes.
func (t *Tensor) ByteSize() int { return len(t.data) }

// Bytes returns the raw little-endian element data.
func (t *Tensor) Bytes() []byte { return t.data }

// Float32s returns the elements converted to float32.
func (t *Tensor) Float32s() []float32 {
	n := t.NumElements()
	out := make([]float32, n)
	switch t.dtype {
	case Float32:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.data[i*4:]))
		}
	case Float64:
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(t.data[i*8:])))
		}
	case Float16:
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(t.data[i*2:])).Float32()
		}
	}
	return out
}

// Equal reports whether two tensors have the same dtype, shape and bytes.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.dtype == o.dtype && slices.Equal(t.shape, o.shape) && bytes.Equal(t.data, o.data)
}

// String returns a short description, e.g. "float32[2 3]".
func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v", t.dtype, t.shape)
}

func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrInvalidShape, shape)
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, fmt.Errorf("%w: element count of %v overflows", ErrInvalidShape, shape)
		}
		n *= d
	}
	return n, nil
}
