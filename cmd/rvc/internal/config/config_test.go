package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestContexts(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.ResolveContext(""); !errors.Is(err, ErrNoContext) {
		t.Fatalf("ResolveContext with no context = %v", err)
	}
	for _, name := range []string{"dev", "prod"} {
		if err := cfg.AddContext(name); err != nil {
			t.Fatalf("AddContext(%s): %v", name, err)
		}
	}
	if err := cfg.AddContext("dev"); err == nil {
		t.Error("duplicate AddContext succeeded")
	}
	if err := cfg.AddContext("../x"); err == nil {
		t.Error("AddContext accepted a path")
	}
	names, _ := cfg.ListContexts()
	if !slices.Equal(names, []string{"dev", "prod"}) {
		t.Errorf("ListContexts = %v", names)
	}

	if err := cfg.UseContext("dev"); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := LoadFrom(cfg.Dir)
	if reloaded.CurrentContext != "dev" {
		t.Errorf("CurrentContext after reload = %q", reloaded.CurrentContext)
	}
	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) succeeded")
	}

	if err := cfg.DeleteContext("dev"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext after delete = %q", cfg.CurrentContext)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestServiceRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "contexts", "dev")
	in := &Server{Host: "0.0.0.0", Port: "5002", Command: Argv{"python", "server.py"}}
	if err := SaveService(dir, ServiceServer, in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadService[Server](dir, ServiceServer)
	if err != nil {
		t.Fatal(err)
	}
	if out.Host != "0.0.0.0" || out.Port != "5002" || !slices.Equal(out.Command, []string{"python", "server.py"}) {
		t.Errorf("LoadService = %+v", out)
	}
	services, _ := ListServices(dir)
	if !slices.Equal(services, []string{"server"}) {
		t.Errorf("ListServices = %v", services)
	}
	if _, err := LoadService[Server](dir, "missing"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("LoadService(missing) = %v", err)
	}
}

func TestArgvFromString(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "server.yaml"), []byte("command: python  server.py --debug\n"), 0o644)
	s, err := LoadService[Server](dir, ServiceServer)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(s.Command, []string{"python", "server.py", "--debug"}) {
		t.Errorf("Command = %q", s.Command)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg, _ := LoadFrom(t.TempDir())
	s, err := LoadOptional[Server](cfg, "", ServiceServer)
	if err != nil || s.Host != "" {
		t.Fatalf("LoadOptional without context = %+v, %v", s, err)
	}
	cfg.AddContext("dev")
	cfg.UseContext("dev")
	if s, err = LoadOptional[Server](cfg, "", ServiceServer); err != nil || s == nil {
		t.Fatalf("LoadOptional without file = %+v, %v", s, err)
	}
	if _, err := LoadOptional[Server](cfg, "nope", ServiceServer); err == nil {
		t.Fatal("LoadOptional accepted an unknown context")
	}
}
