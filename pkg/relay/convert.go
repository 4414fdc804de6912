package relay

import (
	"context"
	"fmt"
	"os"

	"github.com/nadare881/rvc-webui/pkg/audio/resampler"
	"github.com/nadare881/rvc-webui/pkg/audio/wav"
)

// ConvertOptions controls how a local file is prepared before upload.
type ConvertOptions struct {
	// SampleRate resamples the input before sending it. Zero sends the
	// file at its own rate.
	SampleRate int
}

// Convert reads a local WAV file, re-encodes it as 16-bit PCM and sends it
// to the server. The converted clip is returned decoded.
func (c *Client) Convert(ctx context.Context, inputPath string, params ConvertParams, opts ConvertOptions) (*wav.Audio, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("relay: open input: %w", err)
	}
	in, err := wav.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("relay: decode %s: %w", inputPath, err)
	}

	if opts.SampleRate > 0 && opts.SampleRate != in.SampleRate {
		if in, err = resample(in, opts.SampleRate); err != nil {
			return nil, err
		}
	}

	body, err := wav.Bytes(in, wav.PCM16)
	if err != nil {
		return nil, fmt.Errorf("relay: encode input: %w", err)
	}
	c.logger.Debug("relay: convert",
		"input", inputPath,
		"sample_rate", in.SampleRate,
		"channels", in.Channels,
		"duration", in.Duration(),
		"speaker_id", params.SpeakerID,
	)

	out, err := c.ConvertSound(ctx, body, params)
	if err != nil {
		return nil, err
	}
	audio, err := wav.Parse(out)
	if err != nil {
		return nil, fmt.Errorf("relay: decode response: %w", err)
	}
	return audio, nil
}

func resample(in *wav.Audio, rate int) (*wav.Audio, error) {
	src, err := resampler.FormatOf(in.SampleRate, in.Channels)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	dst := src
	dst.SampleRate = rate
	pcm, err := resampler.Resample(in.PCM16(), src, dst)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	return wav.FromPCM16(pcm, rate, in.Channels), nil
}
