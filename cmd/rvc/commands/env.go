package commands

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nadare881/rvc-webui/cmd/rvc/internal/config"
	"github.com/nadare881/rvc-webui/pkg/cli"
	"github.com/nadare881/rvc-webui/pkg/kv"
	"github.com/nadare881/rvc-webui/pkg/procman"
	"github.com/nadare881/rvc-webui/pkg/relay"
)

// EnvModelsDir overrides the default models directory.
const EnvModelsDir = "RVC_MODELS_DIR"

// Defaults used when neither flags nor server.yaml say otherwise.
var (
	defaultModelsDir = "models"
	defaultCommand   = []string{"python", "server.py"}
)

// testStoreOverride replaces the on-disk server registry in tests.
var testStoreOverride kv.Store

// serverFlags are the address flags shared by the server, upload and
// convert commands.
type serverFlags struct {
	host string
	port string
}

func (f *serverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "server host (default "+relay.DefaultHost+")")
	cmd.Flags().StringVar(&f.port, "port", "", "server port (default "+relay.DefaultPort+")")
}

// serverSettings merges flags over server.yaml over defaults.
type serverSettings struct {
	config.Server
}

func loadServerSettings(f *serverFlags) (*serverSettings, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	svc, err := config.LoadOptional[config.Server](cfg, contextName, config.ServiceServer)
	if err != nil {
		return nil, err
	}
	s := &serverSettings{Server: *svc}
	s.Host = cmp.Or(f.host, s.Host, relay.DefaultHost)
	s.Port = cmp.Or(f.port, s.Port, relay.DefaultPort)
	s.ModelsDir = cmp.Or(s.ModelsDir, os.Getenv(EnvModelsDir), defaultModelsDir)
	if len(s.Command) == 0 {
		s.Command = defaultCommand
	}
	slog.Debug("rvc: server settings", "host", s.Host, "port", s.Port, "command", s.Command)
	return s, nil
}

func (s *serverSettings) instance() procman.Instance {
	return procman.Instance{Host: s.Host, Port: s.Port}
}

// modelFile returns the model uploaded when --model is not given.
func (s *serverSettings) modelFile() string {
	if s.ModelFile != "" {
		return s.ModelFile
	}
	return filepath.Join(s.ModelsDir, "pretrained", "beta", "voras_sample_japanese.pth")
}

func (s *serverSettings) client() *relay.Client {
	return relay.NewClient(s.Host, s.Port, relay.WithLogger(slog.Default()))
}

func paths() (*cli.Paths, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewPaths(cfg.Dir), nil
}

// openRegistry opens the server registry. The returned function closes it.
func openRegistry() (kv.Store, func(), error) {
	if testStoreOverride != nil {
		return testStoreOverride, func() {}, nil
	}
	p, err := paths()
	if err != nil {
		return nil, nil, err
	}
	if err := p.Ensure(); err != nil {
		return nil, nil, err
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: p.RegistryDir(), Logger: slog.Default()})
	if err != nil {
		return nil, nil, fmt.Errorf("open server registry: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// newManager returns a process manager for s. Servers are detached so they
// outlive this command.
func newManager(s *serverSettings, store kv.Store) (*procman.Manager, error) {
	p, err := paths()
	if err != nil {
		return nil, err
	}
	return procman.New(procman.Options{
		Command: s.Command,
		Dir:     s.WorkDir,
		Store:   store,
		LogDir:  p.LogDir(),
		Detach:  true,
		Logger:  slog.Default(),
	})
}
