package resampler

import "fmt"

// Format describes 16-bit signed little-endian PCM.
type Format struct {
	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Stereo selects two interleaved channels; false means mono.
	Stereo bool
}

// FormatOf returns the Format for a clip with the given rate and channel
// count. Only mono and stereo are supported.
func FormatOf(sampleRate, channels int) (Format, error) {
	if sampleRate <= 0 {
		return Format{}, fmt.Errorf("resampler: invalid sample rate %d", sampleRate)
	}
	switch channels {
	case 1:
		return Format{SampleRate: sampleRate}, nil
	case 2:
		return Format{SampleRate: sampleRate, Stereo: true}, nil
	}
	return Format{}, fmt.Errorf("resampler: unsupported channel count %d", channels)
}

func (f Format) String() string {
	if f.Stereo {
		return fmt.Sprintf("%dHz stereo", f.SampleRate)
	}
	return fmt.Sprintf("%dHz mono", f.SampleRate)
}

// Channels returns 1 or 2.
func (f Format) Channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// frameBytes is the size of one frame (one sample per channel).
func (f Format) frameBytes() int {
	return 2 * f.Channels()
}
