package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nadare881/rvc-webui/cmd/rvc/internal/config"
	"github.com/nadare881/rvc-webui/pkg/cli"
)

var (
	verbose      bool
	contextName  string
	formatOutput string

	globalConfig  *config.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "rvc",
	Short: "Voras checkpoint tooling and inference server control",
	Long: `rvc builds, inspects and publishes voras voice conversion checkpoints,
and starts and talks to the voice conversion inference server.

Configuration is stored in the OS config directory ($RVC_CONFIG_DIR
overrides it):
  macOS:   ~/Library/Application Support/rvc/
  Linux:   ~/.config/rvc/
  Windows: %AppData%/rvc/

Examples:
  # Assemble a checkpoint from trained weights
  rvc checkpoint build --weights G_100.safetensors --sr 24k --epoch 100 -o out.pth

  # Start a server, load a model, convert a clip
  rvc server start --wait
  rvc upload --model models/pretrained/beta/voras_sample_japanese.pth
  rvc convert -i in.wav -o out.wav --speaker-id 0`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "yaml", "output format for structured results (yaml, json)")
}

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the loaded configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(formatOutput)
}

func printResult(v any) error {
	f, err := outputFormat()
	if err != nil {
		return err
	}
	return cli.Output(v, cli.OutputOptions{Format: f})
}
