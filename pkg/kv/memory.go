package kv

import (
	"bytes"
	"context"
	"iter"
	"maps"
	"slices"
	"sync"
)

// Memory is an in-memory Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts *Options
}

// NewMemory returns an empty Memory store. opts may be nil.
func NewMemory(opts *Options) *Memory {
	return &Memory{data: make(map[string][]byte), opts: opts}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.data[string(m.opts.encode(key))]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	k := string(m.opts.encode(key))
	v := bytes.Clone(value)
	m.mu.Lock()
	m.data[k] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.data, string(m.opts.encode(key)))
	m.mu.Unlock()
	return nil
}

// List snapshots the matching entries when called; later writes are not
// observed by the returned sequence.
func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := m.opts.prefix(prefix)

	m.mu.RLock()
	var entries []Entry
	for _, k := range slices.Sorted(maps.Keys(m.data)) {
		if bytes.HasPrefix([]byte(k), p) {
			entries = append(entries, Entry{Key: m.opts.decode([]byte(k)), Value: bytes.Clone(m.data[k])})
		}
	}
	m.mu.RUnlock()

	return func(yield func(Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error { return nil }
