package resampler

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func pcm16(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

func TestResample_MonoToStereo(t *testing.T) {
	in := pcm16(1, -2, 300)
	got, err := Resample(in, Format{SampleRate: 24000}, Format{SampleRate: 24000, Stereo: true})
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	want := pcm16(1, 1, -2, -2, 300, 300)
	if !bytes.Equal(got, want) {
		t.Fatalf("Resample = %v, want %v", got, want)
	}
}

func TestResample_StereoToMono(t *testing.T) {
	in := pcm16(100, 200, -100, -300)
	got, err := Resample(in, Format{SampleRate: 16000, Stereo: true}, Format{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	want := pcm16(150, -200)
	if !bytes.Equal(got, want) {
		t.Fatalf("Resample = %v, want %v", got, want)
	}
}

func TestResample_SameFormatCopies(t *testing.T) {
	in := pcm16(1, 2, 3)
	f := Format{SampleRate: 24000}
	got, err := Resample(in, f, f)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("Resample = %v, want %v", got, in)
	}
	got[0] = 9
	if in[0] == 9 {
		t.Fatal("Resample returned the input slice")
	}
}

func TestResample_Downsample(t *testing.T) {
	const n = 48000
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}
	got, err := Resample(pcm16(samples...), Format{SampleRate: 48000}, Format{SampleRate: 24000})
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if len(got)%2 != 0 {
		t.Fatalf("output length %d is not frame aligned", len(got))
	}
	frames := len(got) / 2
	if frames == 0 || frames > n/2+64 {
		t.Fatalf("got %d frames, want about %d", frames, n/2)
	}
}

func TestResample_InvalidRate(t *testing.T) {
	if _, err := New(bytes.NewReader(nil), Format{}, Format{SampleRate: 24000}); err == nil {
		t.Fatal("New accepted a zero sample rate")
	}
}

func TestClose(t *testing.T) {
	r, err := New(bytes.NewReader(pcm16(1, 2, 3, 4)), Format{SampleRate: 24000}, Format{SampleRate: 24000})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	_, err = r.Read(make([]byte, 8))
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Read after Close = %v, want io.ErrClosedPipe", err)
	}

	r, _ = New(bytes.NewReader(nil), Format{SampleRate: 24000}, Format{SampleRate: 24000})
	boom := errors.New("boom")
	r.CloseWithError(boom)
	if _, err := r.Read(make([]byte, 8)); !errors.Is(err, boom) {
		t.Fatalf("Read after CloseWithError = %v, want boom", err)
	}
}

func TestRead_ShortBuffer(t *testing.T) {
	r, _ := New(bytes.NewReader(pcm16(1, 2)), Format{SampleRate: 8000}, Format{SampleRate: 8000, Stereo: true})
	if _, err := r.Read(make([]byte, 3)); err != io.ErrShortBuffer {
		t.Fatalf("Read = %v, want io.ErrShortBuffer", err)
	}
}
