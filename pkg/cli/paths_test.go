package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPaths(t *testing.T) {
	root := t.TempDir()
	p := NewPaths(root)
	if got, want := p.RegistryDir(), filepath.Join(root, "data", "servers"); got != want {
		t.Errorf("RegistryDir = %q, want %q", got, want)
	}
	if got, want := p.LogDir(), filepath.Join(root, "logs"); got != want {
		t.Errorf("LogDir = %q, want %q", got, want)
	}
	if err := p.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{p.DataDir(), p.LogDir(), p.CacheDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}
