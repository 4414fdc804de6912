package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/nadare881/rvc-webui/pkg/storage"
)

// Service file names.
const (
	ServiceServer  = "server"
	ServiceStorage = "storage"
)

// ErrServiceNotFound is returned by LoadService for a missing file.
var ErrServiceNotFound = errors.New("service config not found")

// Argv is a command line. In YAML it is either a list or a single string
// split on whitespace.
type Argv []string

func (a *Argv) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*a = strings.Fields(s)
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return fmt.Errorf("command must be a string or a list: %w", err)
	}
	*a = list
	return nil
}

// Server is server.yaml.
type Server struct {
	Host      string `yaml:"host,omitempty"`
	Port      string `yaml:"port,omitempty"`
	Command   Argv   `yaml:"command,omitempty"`
	WorkDir   string `yaml:"work_dir,omitempty"`
	ModelFile string `yaml:"model_file,omitempty"`
	ModelsDir string `yaml:"models_dir,omitempty"`
}

// Storage is storage.yaml.
type Storage = storage.Config

// ValidateServiceName rejects names that are not usable as a file name.
func ValidateServiceName(service string) error {
	switch {
	case service == "":
		return fmt.Errorf("service name cannot be empty")
	case strings.ContainsAny(service, `/\`):
		return fmt.Errorf("service name %q must not contain path separators", service)
	case strings.HasPrefix(service, "."):
		return fmt.Errorf("service name %q must not start with '.'", service)
	}
	return nil
}

// LoadService reads {contextDir}/{service}.yaml.
func LoadService[T any](contextDir, service string) (*T, error) {
	path := filepath.Join(contextDir, service+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (expected %s)", ErrServiceNotFound, service, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}

// SaveService writes {contextDir}/{service}.yaml.
func SaveService[T any](contextDir, service string, v *T) error {
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", service, err)
	}
	path := filepath.Join(contextDir, service+".yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadOptional reads a service file of the named (or current) context.
// A zero value is returned when no context is set or the file does not
// exist, so flags and defaults can fill in.
func LoadOptional[T any](c *Config, contextName, service string) (*T, error) {
	if contextName == "" && c.CurrentContext == "" {
		return new(T), nil
	}
	dir, err := c.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	v, err := LoadService[T](dir, service)
	if errors.Is(err, ErrServiceNotFound) {
		return new(T), nil
	}
	return v, err
}

// ListServices returns the service names configured in a context.
func ListServices(contextDir string) ([]string, error) {
	entries, err := os.ReadDir(contextDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list services: %w", err)
	}
	var services []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
			services = append(services, strings.TrimSuffix(name, ext))
		}
	}
	return services, nil
}
