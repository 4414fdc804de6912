package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

// build assembles a RIFF stream from raw chunks.
func build(chunks ...[]byte) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.Write(c)
	}
	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func chunk(id string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	if len(data)%2 != 0 {
		b.WriteByte(0)
	}
	return b.Bytes()
}

func fmtChunk(tag uint16, channels, rate, bits int) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], tag)
	binary.LittleEndian.PutUint16(b[2:], uint16(channels))
	binary.LittleEndian.PutUint32(b[4:], uint32(rate))
	binary.LittleEndian.PutUint32(b[8:], uint32(rate*channels*bits/8))
	binary.LittleEndian.PutUint16(b[12:], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(b[14:], uint16(bits))
	return chunk("fmt ", b)
}

func TestEncodeDecodePCM16(t *testing.T) {
	in := &Audio{SampleRate: 24000, Channels: 2, Samples: []float32{0, 0.5, -0.5, -1, 0.25, 0.999}}
	data, err := Bytes(in, PCM16)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(data) != 44+2*len(in.Samples) {
		t.Fatalf("encoded %d bytes, want %d", len(data), 44+2*len(in.Samples))
	}

	out, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.SampleRate != 24000 || out.Channels != 2 {
		t.Fatalf("format = %d Hz x%d", out.SampleRate, out.Channels)
	}
	for i, want := range in.Samples {
		if d := math.Abs(float64(out.Samples[i] - want)); d > 1.0/32768 {
			t.Errorf("sample %d = %v, want %v", i, out.Samples[i], want)
		}
	}
}

func TestEncodeDecodeFloat32(t *testing.T) {
	in := &Audio{SampleRate: 48000, Channels: 1, Samples: []float32{0.1, -0.2, 0.3}}
	var buf bytes.Buffer
	if err := Encode(&buf, in, Float32); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range in.Samples {
		if out.Samples[i] != want {
			t.Errorf("sample %d = %v, want %v", i, out.Samples[i], want)
		}
	}
}

func TestPCM16RoundTripExact(t *testing.T) {
	pcm := make([]byte, 0, 8)
	for _, v := range []int16{-32768, -1, 0, 16384, 32767} {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
	}
	a := FromPCM16(pcm, 16000, 1)
	if got := a.PCM16(); !bytes.Equal(got, pcm) {
		t.Fatalf("PCM16 = %v, want %v", got, pcm)
	}
}

func TestDecodeBitDepths(t *testing.T) {
	tests := []struct {
		name string
		tag  uint16
		bits int
		data []byte
		want []float32
	}{
		{"pcm8", formatPCM, 8, []byte{128, 255, 0}, []float32{0, 127.0 / 128, -1}},
		{"pcm24", formatPCM, 24, []byte{0, 0, 0x40, 0, 0, 0xC0}, []float32{0.5, -0.5}},
		{"pcm32", formatPCM, 32, []byte{0, 0, 0, 0x40}, []float32{0.5}},
		{"float64", formatFloat, 64, binary.LittleEndian.AppendUint64(nil, math.Float64bits(-0.25)), []float32{-0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(build(fmtChunk(tt.tag, 1, 8000, tt.bits), chunk("data", tt.data)))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(a.Samples) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(a.Samples), len(tt.want))
			}
			for i, w := range tt.want {
				if a.Samples[i] != w {
					t.Errorf("sample %d = %v, want %v", i, a.Samples[i], w)
				}
			}
		})
	}
}

func TestDecodeSkipsChunks(t *testing.T) {
	data := build(
		chunk("LIST", []byte{1, 2, 3}), // odd size, padded
		fmtChunk(formatPCM, 1, 22050, 16),
		chunk("fact", []byte{0, 0, 0, 0}),
		chunk("data", []byte{0, 0x40}),
	)
	a, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.SampleRate != 22050 || len(a.Samples) != 1 || a.Samples[0] != 0.5 {
		t.Fatalf("got %+v", a)
	}
}

func TestDecodeExtensible(t *testing.T) {
	b := make([]byte, 40)
	binary.LittleEndian.PutUint16(b[0:], formatExtensible)
	binary.LittleEndian.PutUint16(b[2:], 1)
	binary.LittleEndian.PutUint32(b[4:], 16000)
	binary.LittleEndian.PutUint16(b[14:], 32)
	binary.LittleEndian.PutUint16(b[24:], formatFloat)
	a, err := Parse(build(chunk("fmt ", b), chunk("data", binary.LittleEndian.AppendUint32(nil, math.Float32bits(0.75)))))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.Samples[0] != 0.75 {
		t.Fatalf("sample = %v, want 0.75", a.Samples[0])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotWAV},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE"), ErrNotWAV},
		{"no fmt", build(chunk("data", []byte{0, 0})), ErrNoFormat},
		{"no data", build(fmtChunk(formatPCM, 1, 8000, 16)), ErrNoData},
		{"alaw", build(fmtChunk(6, 1, 8000, 8), chunk("data", []byte{0})), ErrUnsupported},
		{"pcm12", build(fmtChunk(formatPCM, 1, 8000, 12), chunk("data", []byte{0, 0})), ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	a := &Audio{SampleRate: 24000, Channels: 2, Samples: make([]float32, 48000)}
	if a.Frames() != 24000 {
		t.Fatalf("Frames = %d", a.Frames())
	}
	if a.Duration() != time.Second {
		t.Fatalf("Duration = %v, want 1s", a.Duration())
	}
}

func TestEncodeRejectsInvalidFormat(t *testing.T) {
	if _, err := Bytes(&Audio{}, PCM16); err == nil {
		t.Fatal("Bytes accepted zero sample rate")
	}
}
