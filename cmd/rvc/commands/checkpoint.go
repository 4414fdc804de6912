package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadare881/rvc-webui/cmd/rvc/internal/config"
	"github.com/nadare881/rvc-webui/pkg/checkpoint"
	"github.com/nadare881/rvc-webui/pkg/cli"
	"github.com/nadare881/rvc-webui/pkg/storage"
)

var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	Aliases: []string{"ckpt"},
	Short:   "Build, inspect and publish voras checkpoints",
}

// buildRequest is the request file accepted by "checkpoint build -f".
type buildRequest struct {
	Weights             string         `yaml:"weights" json:"weights"`
	Output              string         `yaml:"output" json:"output"`
	Family              string         `yaml:"family" json:"family"`
	SampleRate          string         `yaml:"sr" json:"sr"`
	F0                  bool           `yaml:"f0" json:"f0"`
	EmbedderName        string         `yaml:"embedder_name" json:"embedder_name"`
	EmbedderChannels    int            `yaml:"embedder_channels" json:"embedder_channels"`
	EmbedderOutputLayer int            `yaml:"embedder_output_layer" json:"embedder_output_layer"`
	Epoch               int            `yaml:"epoch" json:"epoch"`
	Speakers            map[int]string `yaml:"speakers" json:"speakers"`
	Atomic              bool           `yaml:"atomic" json:"atomic"`
}

var (
	buildFile     string
	buildReq      buildRequest
	buildSpeakers []string

	inspectWeights bool
	exportOutput   string
	pushName       string
	pushForce      bool
	pullOutput     string
)

var checkpointBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble a checkpoint from trained weights",
	Long: `Assemble a voras checkpoint from a SafeTensors weight file.

Settings come from a request file (-f, YAML or JSON, "-" for stdin) and
are overridden by flags:

  weights: G_100.safetensors
  output: out/voras.pth
  sr: 24k
  embedder_name: hubert_base
  embedder_output_layer: 12
  epoch: 100
  speakers:
    0: alice
    1: bob`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := buildRequest{}
		if buildFile != "" {
			if err := cli.LoadRequest(buildFile, &req); err != nil {
				return err
			}
		}
		mergeBuildFlags(cmd, &req)
		if req.Weights == "" || req.Output == "" {
			return fmt.Errorf("both weights (--weights) and output (-o) are required")
		}
		if len(buildSpeakers) > 0 {
			speakers, err := parseSpeakers(buildSpeakers)
			if err != nil {
				return err
			}
			req.Speakers = speakers
		}

		f, err := os.Open(req.Weights)
		if err != nil {
			return err
		}
		weights, _, err := checkpoint.ReadSafeTensors(bufio.NewReader(f))
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", req.Weights, err)
		}

		opts := checkpoint.Options{
			Family:              checkpoint.Family(req.Family),
			SampleRate:          req.SampleRate,
			F0:                  req.F0,
			EmbedderName:        req.EmbedderName,
			EmbedderChannels:    req.EmbedderChannels,
			EmbedderOutputLayer: req.EmbedderOutputLayer,
			Epoch:               req.Epoch,
			Speakers:            req.Speakers,
			Atomic:              req.Atomic,
		}
		if err := checkpoint.Save(checkpoint.Weights(weights), req.Output, opts); err != nil {
			return err
		}
		info, err := os.Stat(req.Output)
		if err != nil {
			return err
		}
		cli.PrintSuccess("saved %s (%d tensors, %s)", req.Output, len(weights), cli.FormatBytes(info.Size()))
		return nil
	},
}

func mergeBuildFlags(cmd *cobra.Command, req *buildRequest) {
	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("weights", func() { req.Weights = buildReq.Weights })
	set("output", func() { req.Output = buildReq.Output })
	set("family", func() { req.Family = buildReq.Family })
	set("sr", func() { req.SampleRate = buildReq.SampleRate })
	set("f0", func() { req.F0 = buildReq.F0 })
	set("embedder-name", func() { req.EmbedderName = buildReq.EmbedderName })
	set("embedder-channels", func() { req.EmbedderChannels = buildReq.EmbedderChannels })
	set("embedder-output-layer", func() { req.EmbedderOutputLayer = buildReq.EmbedderOutputLayer })
	set("epoch", func() { req.Epoch = buildReq.Epoch })
	set("atomic", func() { req.Atomic = buildReq.Atomic })
}

// parseSpeakers parses "index=name" pairs.
func parseSpeakers(pairs []string) (map[int]string, error) {
	out := make(map[int]string, len(pairs))
	for _, p := range pairs {
		k, name, ok := strings.Cut(p, "=")
		idx, err := strconv.Atoi(k)
		if !ok || err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid --speaker %q, want <index>=<name>", p)
		}
		out[idx] = name
	}
	return out, nil
}

// inspection is what "checkpoint inspect" prints.
type inspection struct {
	File   string `json:"file" yaml:"file"`
	Size   string `json:"size" yaml:"size"`
	SHA256 string `json:"sha256" yaml:"sha256"`

	checkpoint.Summary `yaml:",inline"`
}

var checkpointInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print a checkpoint's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		a, err := checkpoint.Load(path)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		sum, err := checkpoint.Checksum(f)
		if err != nil {
			return err
		}
		info, err := f.Stat()
		if err != nil {
			return err
		}
		return printResult(inspection{
			File:    path,
			Size:    cli.FormatBytes(info.Size()),
			SHA256:  sum,
			Summary: a.Summary(inspectWeights),
		})
	},
}

var checkpointVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check that a checkpoint is well formed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := checkpoint.Load(args[0])
		if err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		s := a.Summary(false)
		cli.PrintSuccess("%s: valid %s checkpoint, %s tensors, %s parameters",
			args[0], a.Version, cli.FormatCount(int64(s.Tensors)), cli.FormatCount(int64(s.Elements)))
		return nil
	},
}

var checkpointExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a checkpoint's weights as SafeTensors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := checkpoint.Load(args[0])
		if err != nil {
			return err
		}
		out := exportOutput
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".safetensors"
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		meta := map[string]string{
			"version":               a.Version,
			"info":                  a.Info,
			"sr":                    a.SampleRate,
			"embedder_name":         a.EmbedderName,
			"embedder_output_layer": strconv.Itoa(a.EmbedderOutputLayer),
		}
		if err := checkpoint.WriteSafeTensors(w, a.Weight, meta); err != nil {
			f.Close()
			return err
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		cli.PrintSuccess("exported %d tensors to %s", len(a.Weight), out)
		return nil
	},
}

func openStorage(ctx context.Context) (storage.FileStore, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	sc, err := config.LoadOptional[config.Storage](cfg, contextName, config.ServiceStorage)
	if err != nil {
		return nil, err
	}
	if sc.URI == "" {
		return nil, errors.New("no storage configured; set one with 'rvc config set <context> storage uri <file:///dir|s3://bucket/prefix>'")
	}
	return storage.Open(ctx, *sc)
}

var checkpointPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Publish a checkpoint to the configured storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := checkpoint.Load(args[0])
		if err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("refusing to publish: %w", err)
		}
		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		name := pushName
		if name == "" {
			name = filepath.Base(args[0])
		}
		if !pushForce {
			exists, err := store.Exists(ctx, name)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%s already exists in storage (use --force to replace it)", name)
			}
		}
		if err := checkpoint.Publish(ctx, store, name, a); err != nil {
			return err
		}
		cli.PrintSuccess("pushed %s as %s", args[0], name)
		return nil
	},
}

var checkpointPullCmd = &cobra.Command{
	Use:   "pull <name>",
	Short: "Download a checkpoint from the configured storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		a, err := checkpoint.Fetch(ctx, store, args[0])
		if err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		out := pullOutput
		if out == "" {
			out = filepath.Base(args[0])
		}
		if err := checkpoint.WriteFile(out, a); err != nil {
			return err
		}
		cli.PrintSuccess("pulled %s to %s", args[0], out)
		return nil
	},
}

var checkpointDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a checkpoint from the configured storage",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		exists, err := store.Exists(ctx, args[0])
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s: not found in storage", args[0])
		}
		if err := store.Delete(ctx, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("deleted %s", args[0])
		return nil
	},
}

var checkpointListCmd = &cobra.Command{
	Use:     "list [prefix]",
	Aliases: []string{"ls"},
	Short:   "List checkpoints in the configured storage",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStorage(ctx)
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		objs, err := store.List(ctx, prefix)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("format") {
			return printResult(objs)
		}
		if len(objs) == 0 {
			fmt.Println("No checkpoints stored.")
			return nil
		}
		rows := make([][]string, 0, len(objs))
		for _, o := range objs {
			rows = append(rows, []string{o.Name, cli.FormatBytes(o.Size), cli.FormatAge(o.ModTime)})
		}
		fmt.Println(cli.Table([]string{"NAME", "SIZE", "MODIFIED"}, rows))
		return nil
	},
}

func init() {
	f := checkpointBuildCmd.Flags()
	f.StringVarP(&buildFile, "file", "f", "", "request file (YAML or JSON, - for stdin)")
	f.StringVar(&buildReq.Weights, "weights", "", "SafeTensors weight file")
	f.StringVarP(&buildReq.Output, "output", "o", "", "checkpoint path to write")
	f.StringVar(&buildReq.Family, "family", string(checkpoint.FamilyVoras), "model family")
	f.StringVar(&buildReq.SampleRate, "sr", "", "sample rate label, e.g. 24k")
	f.BoolVar(&buildReq.F0, "f0", false, "trained with pitch guidance (recorded as disabled)")
	f.StringVar(&buildReq.EmbedderName, "embedder-name", "", "feature embedder name")
	f.IntVar(&buildReq.EmbedderChannels, "embedder-channels", 0, "embedder output width")
	f.IntVar(&buildReq.EmbedderOutputLayer, "embedder-output-layer", 0, "embedder output layer")
	f.IntVar(&buildReq.Epoch, "epoch", 0, "completed training epochs")
	f.StringArrayVar(&buildSpeakers, "speaker", nil, "speaker as <index>=<name> (repeatable)")
	f.BoolVar(&buildReq.Atomic, "atomic", false, "write through a temporary file and rename")

	checkpointInspectCmd.Flags().BoolVar(&inspectWeights, "weights", false, "list every tensor")
	checkpointExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "SafeTensors file (default <file>.safetensors)")
	checkpointPushCmd.Flags().StringVar(&pushName, "name", "", "name in storage (default file base name)")
	checkpointPushCmd.Flags().BoolVar(&pushForce, "force", false, "replace an existing checkpoint")
	checkpointPullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "file to write (default name's base)")

	checkpointCmd.AddCommand(
		checkpointBuildCmd,
		checkpointInspectCmd,
		checkpointVerifyCmd,
		checkpointExportCmd,
		checkpointPushCmd,
		checkpointPullCmd,
		checkpointDeleteCmd,
		checkpointListCmd,
	)
	rootCmd.AddCommand(checkpointCmd)
}
