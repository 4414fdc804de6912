package checkpoint

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Save snapshots m, builds the checkpoint and writes it to path. Missing
// parent directories are created. An existing file at path is replaced
// wholesale.
func Save(m Model, path string, opts Options) error {
	if !opts.Family.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrEncode, ErrUnsupportedFamily, opts.Family)
	}

	weights := Snapshot(m)
	a := Build(weights, opts)

	slog.Debug("checkpoint: save",
		"path", path,
		"weights", len(weights),
		"epoch", opts.Epoch,
		"embedder", opts.EmbedderName,
		"embedder_channels", opts.EmbedderChannels,
		"spk_embed_dim", a.SpkEmbedDim(),
	)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if opts.Atomic {
		return writeAtomic(path, a)
	}
	return writeFile(path, a)
}

// WriteFile encodes an already built artifact to path, creating parent
// directories.
func WriteFile(path string, a *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return writeFile(path, a)
}

func writeFile(path string, a *Artifact) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := Encode(f, a); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func writeAtomic(path string, a *Artifact) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := writeFile(tmp, a); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}
