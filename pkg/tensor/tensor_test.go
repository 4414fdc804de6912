package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/x448/float16"
)

func TestDTypeSize(t *testing.T) {
	tests := []struct {
		dtype DType
		size  int
		name  string
	}{
		{Float32, 4, "float32"},
		{Float64, 8, "float64"},
		{Float16, 2, "float16"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, tt.dtype.Size())
		assert.Equal(t, tt.name, tt.dtype.String())
		parsed, err := ParseDType(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.dtype, parsed)
	}

	_, err := ParseDType("int8")
	assert.ErrorIs(t, err, ErrUnsupportedDType)
	assert.False(t, DType(42).Valid())
}

func TestNewValidatesLength(t *testing.T) {
	_, err := New(Float32, []int{2, 3}, make([]byte, 20))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New(Float32, []int{2, -1}, nil)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = New(DType(9), []int{1}, make([]byte, 4))
	assert.ErrorIs(t, err, ErrUnsupportedDType)

	tt, err := New(Float64, []int{2, 2}, make([]byte, 32))
	require.NoError(t, err)
	assert.Equal(t, 4, tt.NumElements())
	assert.Equal(t, 32, tt.ByteSize())
	assert.Equal(t, "float64[2 2]", tt.String())
}

func TestNewRejectsOverflowingShape(t *testing.T) {
	// 3 * 3074457345618258603 wraps to -MaxInt64, and doubling that wraps
	// to 2, which would match a 2-byte buffer.
	_, err := New(Float16, []int{3, 3074457345618258603}, make([]byte, 2))
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = New(Float64, []int{math.MaxInt / 4}, make([]byte, 0))
	assert.ErrorIs(t, err, ErrInvalidShape)

	tt, err := New(Float32, []int{0, math.MaxInt}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tt.NumElements())
}

func TestShapeIsCopied(t *testing.T) {
	shape := []int{1, 2}
	tt := MustFromFloat32(shape, []float32{1, 2})
	shape[0] = 7
	got := tt.Shape()
	assert.Equal(t, []int{1, 2}, got)
	got[1] = 9
	assert.Equal(t, []int{1, 2}, tt.Shape())
}

func TestFloat32sConversion(t *testing.T) {
	want := []float32{0.5, -1.25, 3}

	f32 := MustFromFloat32([]int{3}, want)
	assert.Equal(t, want, f32.Float32s())

	f64, err := FromFloat64([]int{3}, []float64{0.5, -1.25, 3})
	require.NoError(t, err)
	assert.Equal(t, want, f64.Float32s())

	halves := make([]float16.Float16, len(want))
	for i, v := range want {
		halves[i] = float16.Fromfloat32(v)
	}
	f16, err := FromFloat16([]int{3}, halves)
	require.NoError(t, err)
	assert.Equal(t, 6, f16.ByteSize())
	assert.Equal(t, want, f16.Float32s())
}

func TestEqual(t *testing.T) {
	a := MustFromFloat32([]int{2}, []float32{1, 2})
	b := MustFromFloat32([]int{2}, []float32{1, 2})
	c := MustFromFloat32([]int{1, 2}, []float32{1, 2})
	d := MustFromFloat32([]int{2}, []float32{1, 3})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Tensor)(nil).Equal(nil))
}

func TestMsgpackRoundTrip(t *testing.T) {
	f64, err := FromFloat64([]int{2, 1}, []float64{1e-3, 4})
	require.NoError(t, err)
	f16, err := FromFloat16([]int{1}, []float16.Float16{float16.Fromfloat32(0.25)})
	require.NoError(t, err)
	scalar := MustFromFloat32(nil, []float32{42})

	for _, in := range []*Tensor{
		MustFromFloat32([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6}),
		f64,
		f16,
		scalar,
		MustFromFloat32([]int{0, 4}, nil),
	} {
		t.Run(in.String(), func(t *testing.T) {
			data, err := msgpack.Marshal(in)
			require.NoError(t, err)

			var out Tensor
			require.NoError(t, msgpack.Unmarshal(data, &out))
			assert.True(t, in.Equal(&out), "got %v want %v", &out, in)

			again, err := msgpack.Marshal(&out)
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestMsgpackRejectsBadPayload(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{"shape": []int{2}, "data": []byte{0, 0, 0, 0}})
	require.NoError(t, err)
	var out Tensor
	assert.ErrorIs(t, msgpack.Unmarshal(data, &out), ErrUnsupportedDType)

	data, err = msgpack.Marshal(map[string]any{"dtype": "float32", "shape": []int{2}, "data": []byte{0, 0, 0, 0}})
	require.NoError(t, err)
	assert.ErrorIs(t, msgpack.Unmarshal(data, &out), ErrShapeMismatch)
}
