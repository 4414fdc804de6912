// Package config is the rvc CLI configuration.
//
// Configuration lives under os.UserConfigDir()/rvc, or $RVC_CONFIG_DIR
// when set:
//
//	rvc/
//	├── current-context          # plain text: name of current context
//	├── contexts/
//	│   └── dev/
//	│       ├── server.yaml      # host, port, command, model_file, ...
//	│       └── storage.yaml     # uri, region, endpoint, keys
//	├── data/                    # server registry
//	└── logs/                    # server output
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDir             = "rvc"
	currentContextFile = "current-context"
	contextsDir        = "contexts"

	// EnvConfigDir overrides the configuration root.
	EnvConfigDir = "RVC_CONFIG_DIR"
)

// ErrNoContext is returned when a context is required but none is set.
var ErrNoContext = errors.New("no current context set; use 'rvc config use-context <name>'")

// Config holds the root configuration state.
type Config struct {
	Dir            string
	CurrentContext string
}

// Load loads the configuration from $RVC_CONFIG_DIR or the OS default.
func Load() (*Config, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return LoadFrom(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return LoadFrom(filepath.Join(base, appDir))
}

// LoadFrom loads the configuration rooted at dir. A missing directory is
// not an error.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{Dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, currentContextFile))
	switch {
	case err == nil:
		cfg.CurrentContext = strings.TrimSpace(string(data))
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read current context: %w", err)
	}
	return cfg, nil
}

// ValidateContextName rejects names that are not usable as a directory
// name.
func ValidateContextName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("context name cannot be empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("context name %q must not contain path separators", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("context name %q must not start with '.'", name)
	}
	return nil
}

// ContextDir returns the directory of a named context.
func (c *Config) ContextDir(name string) string {
	return filepath.Join(c.Dir, contextsDir, name)
}

// ResolveContext returns the directory of the named context, or of the
// current context if name is empty.
func (c *Config) ResolveContext(name string) (string, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return "", ErrNoContext
		}
		name = c.CurrentContext
	}
	if err := ValidateContextName(name); err != nil {
		return "", err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("context %q not found", name)
	}
	return dir, nil
}

// ListContexts returns the names of all contexts.
func (c *Config) ListContexts() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.Dir, contextsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// AddContext creates an empty context.
func (c *Config) AddContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("context %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create context %q: %w", name, err)
	}
	return nil
}

// DeleteContext removes a context and its service files. Deleting the
// current context unsets it.
func (c *Config) DeleteContext(name string) error {
	if err := ValidateContextName(name); err != nil {
		return err
	}
	dir := c.ContextDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("context %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete context %q: %w", name, err)
	}
	if c.CurrentContext == name {
		c.CurrentContext = ""
		return c.saveCurrentContext()
	}
	return nil
}

// UseContext switches the current context.
func (c *Config) UseContext(name string) error {
	if _, err := c.ResolveContext(name); err != nil {
		return err
	}
	c.CurrentContext = name
	return c.saveCurrentContext()
}

func (c *Config) saveCurrentContext() error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(filepath.Join(c.Dir, currentContextFile), []byte(c.CurrentContext+"\n"), 0o644)
}
