package resampler

import "testing"

func TestFormatOf(t *testing.T) {
	tests := []struct {
		rate, channels int
		want           Format
		wantErr        bool
	}{
		{44100, 1, Format{SampleRate: 44100}, false},
		{48000, 2, Format{SampleRate: 48000, Stereo: true}, false},
		{16000, 6, Format{}, true},
		{0, 1, Format{}, true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.rate, tt.channels)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatOf(%d, %d) error = %v, wantErr %v", tt.rate, tt.channels, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatOf(%d, %d) = %+v, want %+v", tt.rate, tt.channels, got, tt.want)
		}
	}
}

func TestFormat_frameBytes(t *testing.T) {
	tests := []struct {
		format Format
		frame  int
		str    string
	}{
		{Format{SampleRate: 24000}, 2, "24000Hz mono"},
		{Format{SampleRate: 48000, Stereo: true}, 4, "48000Hz stereo"},
	}
	for _, tt := range tests {
		if got := tt.format.frameBytes(); got != tt.frame {
			t.Errorf("%v.frameBytes() = %d, want %d", tt.format, got, tt.frame)
		}
		if got := tt.format.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}
