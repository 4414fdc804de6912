package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the on-disk layout of the CLI's state below one root
// directory.
type Paths struct {
	Root string
}

// NewPaths returns the layout rooted at root.
func NewPaths(root string) *Paths { return &Paths{Root: root} }

// DataDir holds the server registry.
func (p *Paths) DataDir() string { return filepath.Join(p.Root, "data") }

// LogDir holds server output logs.
func (p *Paths) LogDir() string { return filepath.Join(p.Root, "logs") }

// CacheDir holds downloaded checkpoints.
func (p *Paths) CacheDir() string { return filepath.Join(p.Root, "cache") }

// RegistryDir is the badger directory of the server registry.
func (p *Paths) RegistryDir() string { return filepath.Join(p.DataDir(), "servers") }

// Ensure creates every directory of the layout.
func (p *Paths) Ensure() error {
	for _, dir := range []string{p.DataDir(), p.LogDir(), p.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
