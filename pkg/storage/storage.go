// Package storage stores named blobs on local disk or in an S3-compatible
// object store.
//
// Checkpoints are published to and fetched from a FileStore by name. Names
// are forward-slash paths relative to the store root and may not escape it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrInvalidPath is returned for names that are empty, absolute, or
// escape the store root.
var ErrInvalidPath = errors.New("storage: invalid path")

// FileStore is a flat namespace of blobs. Implementations are safe for
// concurrent use.
type FileStore interface {
	// Read opens the named blob. A missing blob yields an error wrapping
	// os.ErrNotExist.
	Read(ctx context.Context, name string) (io.ReadCloser, error)

	// Write replaces the named blob with whatever is written before Close.
	// Nothing is visible to readers until Close returns nil.
	Write(ctx context.Context, name string) (io.WriteCloser, error)

	// Delete removes the named blob. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, name string) error

	// Exists reports whether the named blob exists.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns the blobs whose names start with prefix, sorted by name.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Aborter is implemented by writers returned from FileStore.Write. Abort
// drops the staged data without replacing the blob.
type Aborter interface {
	Abort() error
}

// Abort discards w if it supports it and closes it otherwise.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

// Object describes a stored blob.
type Object struct {
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// cleanName validates name and returns it in canonical form.
func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	c := path.Clean(name)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return c, nil
}
