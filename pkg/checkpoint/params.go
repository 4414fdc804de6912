package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"
)

// Params is an insertion-ordered mapping of hyperparameter name to value.
//
// It is the single source for both views stored in a checkpoint: Values
// gives the ordered "config" list and Get/All give the "params" mapping.
// Values are restricted to int, bool, string, float64 and []int.
type Params struct {
	keys   []string
	values map[string]any
}

// NewParams returns an empty Params.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position.
func (p *Params) Set(key string, v any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Int returns the integer stored under key.
func (p *Params) Int(key string) (int, bool) {
	v, ok := p.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Len returns the number of keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.keys)
}

// Values returns the values in key order.
func (p *Params) Values() []any {
	if p == nil {
		return nil
	}
	out := make([]any, len(p.keys))
	for i, k := range p.keys {
		out[i] = p.values[k]
	}
	return out
}

// All iterates over key/value pairs in order.
func (p *Params) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if p == nil {
			return
		}
		for _, k := range p.keys {
			if !yield(k, p.values[k]) {
				return
			}
		}
	}
}

// EncodeMsgpack implements msgpack.CustomEncoder, writing keys in order.
func (p *Params) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(p.Len()); err != nil {
		return err
	}
	for k, v := range p.All() {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := encodeValue(enc, v); err != nil {
			return fmt.Errorf("param %q: %w", k, err)
		}
	}
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder, preserving key order.
func (p *Params) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	*p = Params{values: make(map[string]any, max(n, 0))}
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := decodeValue(dec)
		if err != nil {
			return fmt.Errorf("param %q: %w", k, err)
		}
		p.Set(k, v)
	}
	return nil
}

// MarshalJSON writes the mapping with keys in order.
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML keeps key order in YAML output.
func (p *Params) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, p.Len())
	for k, v := range p.All() {
		ms = append(ms, yaml.MapItem{Key: k, Value: v})
	}
	return ms, nil
}

// encodeValue writes one hyperparameter value. Only the types a model
// config can carry are accepted.
func encodeValue(enc *msgpack.Encoder, v any) error {
	switch x := v.(type) {
	case int:
		return enc.EncodeInt(int64(x))
	case int64:
		return enc.EncodeInt(x)
	case bool:
		return enc.EncodeBool(x)
	case string:
		return enc.EncodeString(x)
	case float64:
		return enc.EncodeFloat64(x)
	case []int:
		if err := enc.EncodeArrayLen(len(x)); err != nil {
			return err
		}
		for _, e := range x {
			if err := enc.EncodeInt(int64(e)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported value type %T", ErrEncode, v)
}

// decodeValue reads a hyperparameter value and normalizes it to the types
// accepted by encodeValue.
func decodeValue(dec *msgpack.Decoder) (any, error) {
	raw, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	return normalize(raw)
}

func normalize(raw any) (any, error) {
	switch x := raw.(type) {
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case bool, string, float64:
		return x, nil
	case []any:
		out := make([]int, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			v, ok := n.(int)
			if !ok {
				return nil, fmt.Errorf("%w: list element %T is not an integer", ErrDecode, e)
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported value type %T", ErrDecode, raw)
}
