package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nadare881/rvc-webui/pkg/audio/wav"
	"github.com/nadare881/rvc-webui/pkg/cli"
	"github.com/nadare881/rvc-webui/pkg/relay"
)

var (
	relayAddr      serverFlags
	uploadModel    string
	convertInputs  []string
	convertOutput  string
	convertSpeaker int
	convertRate    int
	convertJobs    int
	requestTimeout time.Duration
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Load a checkpoint into a running server",
	Long: `Ask the server to load a checkpoint. The path is resolved on the
server's filesystem. The server's response text is printed as-is.

Without --model, server.yaml's model_file is used, falling back to
<models_dir>/pretrained/beta/voras_sample_japanese.pth.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServerSettings(&relayAddr)
		if err != nil {
			return err
		}
		model := uploadModel
		if model == "" {
			model = s.modelFile()
		}
		ctx, cancel := requestContext()
		defer cancel()
		text, err := s.client().UploadModel(ctx, model)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert audio files through a running server",
	Long: `Send WAV files to the server and write the converted audio.

With one input, -o names the output file (default <input>_converted.wav).
With several inputs, -o is a directory and each output keeps its input's
file name. Files are converted concurrently (--jobs).

Examples:
  rvc convert -i in.wav -o out.wav --speaker-id 0
  rvc convert -i a.wav -i b.wav -o converted/ --rate 24000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(convertInputs) == 0 {
			return fmt.Errorf("at least one -i/--input is required")
		}
		s, err := loadServerSettings(&relayAddr)
		if err != nil {
			return err
		}
		targets, err := convertTargets(convertInputs, convertOutput)
		if err != nil {
			return err
		}

		client := s.client()
		params := relay.ConvertParams{SpeakerID: convertSpeaker}
		opts := relay.ConvertOptions{SampleRate: convertRate}

		ctx, cancel := requestContext()
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(convertJobs, 1))
		for in, out := range targets {
			g.Go(func() error {
				start := time.Now()
				audio, err := client.Convert(gctx, in, params, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				if err := writeWAV(out, audio); err != nil {
					return fmt.Errorf("%s: %w", in, err)
				}
				cli.PrintSuccess("convert succeed: %s -> %s (%s audio in %s)",
					in, out, cli.FormatDuration(audio.Duration()), cli.FormatDuration(time.Since(start)))
				return nil
			})
		}
		return g.Wait()
	},
}

// convertTargets maps each input to its output path.
func convertTargets(inputs []string, output string) (map[string]string, error) {
	targets := make(map[string]string, len(inputs))
	if len(inputs) == 1 && !isDirArg(output) {
		in := inputs[0]
		if output == "" {
			output = strings.TrimSuffix(in, filepath.Ext(in)) + "_converted.wav"
		}
		targets[in] = output
		return targets, nil
	}
	if output == "" {
		return nil, fmt.Errorf("-o/--output directory is required with several inputs")
	}
	for _, in := range inputs {
		out := filepath.Join(output, filepath.Base(in))
		for prev, o := range targets {
			if o == out {
				return nil, fmt.Errorf("inputs %s and %s would both write %s", prev, in, out)
			}
		}
		targets[in] = out
	}
	return targets, nil
}

func isDirArg(p string) bool {
	if p == "" {
		return false
	}
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func writeWAV(path string, a *wav.Audio) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wav.Encode(f, a, wav.PCM16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// requestContext bounds a relay call by --timeout. Zero means no bound.
func requestContext() (context.Context, context.CancelFunc) {
	if requestTimeout > 0 {
		return context.WithTimeout(context.Background(), requestTimeout)
	}
	return context.WithCancel(context.Background())
}

func init() {
	for _, c := range []*cobra.Command{uploadCmd, convertCmd} {
		relayAddr.register(c)
		c.Flags().DurationVar(&requestTimeout, "timeout", 0, "request timeout (0 waits indefinitely)")
	}
	uploadCmd.Flags().StringVar(&uploadModel, "model", "", "checkpoint path on the server")

	convertCmd.Flags().StringArrayVarP(&convertInputs, "input", "i", nil, "input WAV file (repeatable)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file, or directory for several inputs")
	convertCmd.Flags().IntVar(&convertSpeaker, "speaker-id", 0, "target speaker id")
	convertCmd.Flags().IntVar(&convertRate, "rate", 0, "resample input to this rate before sending (0 keeps the file's rate)")
	convertCmd.Flags().IntVarP(&convertJobs, "jobs", "j", runtime.NumCPU(), "files converted concurrently")

	rootCmd.AddCommand(uploadCmd, convertCmd)
}
