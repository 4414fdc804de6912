// Package wav reads and writes RIFF/WAVE audio.
//
// Decoded audio is held as interleaved float32 samples in [-1, 1] whatever
// the on-disk encoding was. Decode understands integer PCM at 8, 16, 24 and
// 32 bits and IEEE float at 32 and 64 bits, including WAVE_FORMAT_EXTENSIBLE
// headers. Encode writes 16-bit PCM or 32-bit float.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Errors returned by Decode.
var (
	ErrNotWAV      = errors.New("wav: not a RIFF/WAVE stream")
	ErrNoFormat    = errors.New("wav: missing fmt chunk")
	ErrNoData      = errors.New("wav: missing data chunk")
	ErrUnsupported = errors.New("wav: unsupported encoding")
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

// Encoding selects the sample encoding written by Encode.
type Encoding int

const (
	// PCM16 is 16-bit signed integer PCM.
	PCM16 Encoding = iota
	// Float32 is 32-bit IEEE float.
	Float32
)

func (e Encoding) bits() int {
	if e == Float32 {
		return 32
	}
	return 16
}

func (e Encoding) tag() uint16 {
	if e == Float32 {
		return formatFloat
	}
	return formatPCM
}

// Audio is a decoded clip.
type Audio struct {
	SampleRate int
	Channels   int
	// Samples are interleaved by channel.
	Samples []float32
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Duration returns the playing time of the clip.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.SampleRate)
}

// PCM16 returns the samples as 16-bit little-endian PCM.
func (a *Audio) PCM16() []byte {
	out := make([]byte, 2*len(a.Samples))
	for i, s := range a.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(floatToInt16(s)))
	}
	return out
}

// FromPCM16 builds an Audio from 16-bit little-endian PCM. A trailing odd
// byte is ignored.
func FromPCM16(pcm []byte, sampleRate, channels int) *Audio {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
	}
	return &Audio{SampleRate: sampleRate, Channels: channels, Samples: samples}
}

type format struct {
	tag        uint16
	channels   int
	sampleRate int
	bits       int
}

// Decode reads a complete WAV stream.
func Decode(r io.Reader) (*Audio, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wav: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes a WAV file held in memory. Chunks other than fmt and data
// are skipped; chunk sizes are padded to even length.
func Parse(wav []byte) (*Audio, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		f       format
		haveFmt bool
	)
	offset := 12
	for offset+8 <= len(wav) {
		id := string(wav[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8
		end := body + size
		if end > len(wav) || end < body {
			// Streams written before the final length was known report a
			// bogus size; take what is there.
			end = len(wav)
		}

		switch id {
		case "fmt ":
			var err error
			if f, err = parseFormat(wav[body:end]); err != nil {
				return nil, err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, ErrNoFormat
			}
			samples := decodeSamples(wav[body:end], f)
			return &Audio{SampleRate: f.sampleRate, Channels: f.channels, Samples: samples}, nil
		}

		offset = end
		if size%2 != 0 {
			offset++
		}
	}
	if !haveFmt {
		return nil, ErrNoFormat
	}
	return nil, ErrNoData
}

func parseFormat(b []byte) (format, error) {
	if len(b) < 16 {
		return format{}, fmt.Errorf("%w: fmt chunk is %d bytes", ErrNotWAV, len(b))
	}
	f := format{
		tag:        binary.LittleEndian.Uint16(b[0:2]),
		channels:   int(binary.LittleEndian.Uint16(b[2:4])),
		sampleRate: int(binary.LittleEndian.Uint32(b[4:8])),
		bits:       int(binary.LittleEndian.Uint16(b[14:16])),
	}
	if f.tag == formatExtensible && len(b) >= 26 {
		// The first two bytes of the sub-format GUID carry the real tag.
		f.tag = binary.LittleEndian.Uint16(b[24:26])
	}
	if f.channels <= 0 || f.sampleRate <= 0 {
		return format{}, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupported, f.channels, f.sampleRate)
	}
	switch {
	case f.tag == formatPCM && (f.bits == 8 || f.bits == 16 || f.bits == 24 || f.bits == 32):
	case f.tag == formatFloat && (f.bits == 32 || f.bits == 64):
	default:
		return format{}, fmt.Errorf("%w: format tag %d with %d bits", ErrUnsupported, f.tag, f.bits)
	}
	return f, nil
}

func decodeSamples(b []byte, f format) []float32 {
	width := f.bits / 8
	n := len(b) / width
	n -= n % f.channels
	out := make([]float32, n)

	for i := range out {
		s := b[i*width:]
		switch {
		case f.tag == formatFloat && f.bits == 32:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(s))
		case f.tag == formatFloat:
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(s)))
		case f.bits == 8:
			out[i] = (float32(s[0]) - 128) / 128
		case f.bits == 16:
			out[i] = float32(int16(binary.LittleEndian.Uint16(s))) / (1 << 15)
		case f.bits == 24:
			v := int32(s[0]) | int32(s[1])<<8 | int32(int8(s[2]))<<16
			out[i] = float32(v) / (1 << 23)
		default:
			out[i] = float32(int32(binary.LittleEndian.Uint32(s))) / (1 << 31)
		}
	}
	return out
}

// Encode writes a as a canonical 44-byte-header WAV file.
func Encode(w io.Writer, a *Audio, enc Encoding) error {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return fmt.Errorf("wav: invalid format %d channels at %d Hz", a.Channels, a.SampleRate)
	}
	bits := enc.bits()
	blockAlign := a.Channels * bits / 8
	dataSize := len(a.Samples) * bits / 8

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+dataSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], enc.tag())
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(a.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(a.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(a.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(bits))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	var body []byte
	if enc == Float32 {
		body = make([]byte, dataSize)
		for i, s := range a.Samples {
			binary.LittleEndian.PutUint32(body[4*i:], math.Float32bits(s))
		}
	} else {
		body = a.PCM16()
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wav: write data: %w", err)
	}
	return nil
}

// Bytes encodes a into memory.
func Bytes(a *Audio, enc Encoding) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, a, enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func floatToInt16(s float32) int16 {
	v := s * 32768
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
