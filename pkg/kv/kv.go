// Package kv is a small key-value store with hierarchical keys.
//
// Keys are string segments joined by a separator (':' by default), so
// Key{"server", "127.0.0.1", "5001"} is stored as "server:127.0.0.1:5001"
// and can be listed by the prefix Key{"server"}. Badger backs the store on
// disk; Memory serves tests and one-shot commands.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(DefaultSeparator))
}

// Entry is one key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store. Implementations are safe for concurrent use.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List yields entries under prefix in lexicographic key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}

// DefaultSeparator joins key segments.
const DefaultSeparator byte = ':'

// Options configures key encoding.
type Options struct {
	// Separator joins key segments. Zero means DefaultSeparator.
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) encode(k Key) []byte {
	return []byte(strings.Join(k, string(o.sep())))
}

func (o *Options) decode(b []byte) Key {
	return strings.Split(string(b), string(o.sep()))
}

// prefix returns the encoded scan prefix for p. A non-empty prefix ends in
// the separator so that "a:b" does not match "a:bc".
func (o *Options) prefix(p Key) []byte {
	if len(p) == 0 {
		return nil
	}
	return append(o.encode(p), o.sep())
}
