package tensor

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack implements msgpack.CustomEncoder.
//
// A tensor is written as the map {"dtype": str, "shape": [int], "data": bin}
// with keys in that order, so equal tensors always encode to equal bytes.
func (t *Tensor) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(3); err != nil {
		return err
	}
	if err := enc.EncodeString("dtype"); err != nil {
		return err
	}
	if err := enc.EncodeString(t.dtype.String()); err != nil {
		return err
	}
	if err := enc.EncodeString("shape"); err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(t.shape)); err != nil {
		return err
	}
	for _, d := range t.shape {
		if err := enc.EncodeInt(int64(d)); err != nil {
			return err
		}
	}
	if err := enc.EncodeString("data"); err != nil {
		return err
	}
	if t.data == nil {
		// EncodeBytes(nil) writes msgpack nil; empty tensors must stay bin.
		return enc.EncodeBytes([]byte{})
	}
	return enc.EncodeBytes(t.data)
}

// DecodeMsgpack implements msgpack.CustomDecoder. Unknown keys are skipped.
func (t *Tensor) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	var (
		dtype    DType
		hasDType bool
		shape    []int
		data     []byte
	)
	for range n {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "dtype":
			s, err := dec.DecodeString()
			if err != nil {
				return err
			}
			if dtype, err = ParseDType(s); err != nil {
				return err
			}
			hasDType = true
		case "shape":
			l, err := dec.DecodeArrayLen()
			if err != nil {
				return err
			}
			shape = make([]int, 0, max(l, 0))
			for range l {
				d, err := dec.DecodeInt()
				if err != nil {
					return err
				}
				shape = append(shape, d)
			}
		case "data":
			if data, err = dec.DecodeBytes(); err != nil {
				return err
			}
		default:
			if err := dec.Skip(); err != nil {
				return err
			}
		}
	}
	if !hasDType {
		return fmt.Errorf("%w: missing dtype", ErrUnsupportedDType)
	}
	if data == nil {
		data = []byte{}
	}
	decoded, err := New(dtype, shape, data)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

var (
	_ msgpack.CustomEncoder = (*Tensor)(nil)
	_ msgpack.CustomDecoder = (*Tensor)(nil)
)
