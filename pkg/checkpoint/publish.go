package checkpoint

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nadare881/rvc-webui/pkg/storage"
)

// Publish writes a to store under name. The artifact is encoded in memory
// first so an encode error never leaves a partial object behind.
func Publish(ctx context.Context, store storage.FileStore, name string, a *Artifact) error {
	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		return err
	}
	w, err := store.Write(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, name, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		storage.Abort(w)
		return fmt.Errorf("%w: write %s: %w", ErrIO, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, name, err)
	}
	return nil
}

// Fetch reads the artifact stored under name. A missing object yields an
// error wrapping os.ErrNotExist.
func Fetch(ctx context.Context, store storage.FileStore, name string) (*Artifact, error) {
	r, err := store.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, name, err)
	}
	defer r.Close()
	return Decode(r)
}
