package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Local is a FileStore rooted at a directory.
type Local struct {
	root string
}

// NewLocal returns a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) resolve(name string) (string, error) {
	c, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(c)), nil
}

func (l *Local) Read(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return f, nil
}

// Write stages data in a temporary file next to the target and renames it
// into place on Close.
func (l *Local) Write(_ context.Context, name string) (io.WriteCloser, error) {
	p, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("storage: write %s: %w", name, err)
	}
	tmp := filepath.Join(filepath.Dir(p), "."+filepath.Base(p)+"."+uuid.NewString()+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("storage: write %s: %w", name, err)
	}
	return &localWriter{File: f, target: p}, nil
}

type localWriter struct {
	*os.File
	target string
	closed bool
}

func (w *localWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.File.Close(); err != nil {
		os.Remove(w.Name())
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(w.Name(), w.target); err != nil {
		os.Remove(w.Name())
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func (w *localWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.File.Close()
	if err := os.Remove(w.Name()); err != nil {
		return fmt.Errorf("storage: abort: %w", err)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, name string) error {
	p, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	p, err := l.resolve(name)
	if err != nil {
		return false, err
	}
	switch _, err := os.Stat(p); {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("storage: stat %s: %w", name, err)
	}
}

// List walks the root. Staged temporary files are skipped.
func (l *Local) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || (strings.HasPrefix(d.Name(), ".") && strings.HasSuffix(d.Name(), ".tmp")) {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Name: name, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ FileStore = (*Local)(nil)
