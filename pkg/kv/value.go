package kv

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// GetValue reads key and msgpack-decodes it into a T.
func GetValue[T any](ctx context.Context, s Store, key Key) (T, error) {
	var v T
	data, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return v, nil
}

// SetValue msgpack-encodes v and stores it under key.
func SetValue(ctx context.Context, s Store, key Key, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Values decodes every entry under prefix into a T.
func Values[T any](ctx context.Context, s Store, prefix Key) ([]T, error) {
	var out []T
	for e, err := range s.List(ctx, prefix) {
		if err != nil {
			return out, err
		}
		var v T
		if err := msgpack.Unmarshal(e.Value, &v); err != nil {
			return out, fmt.Errorf("kv: decode %s: %w", e.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}
