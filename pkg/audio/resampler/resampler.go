package resampler

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler is a PCM stream converted to a destination format. It must be
// closed to release the underlying filter.
type Resampler interface {
	io.ReadCloser
	CloseWithError(error) error
}

type stream struct {
	src    io.Reader
	srcFmt Format
	dstFmt Format

	mu       sync.Mutex
	closeErr error
	srcErr   error
	filter   resampling.Resampler
	readBuf  []byte
	leftover []byte
}

// New returns a Resampler reading srcFmt PCM from src and producing dstFmt
// PCM. When the rates match only channel conversion is performed.
func New(src io.Reader, srcFmt, dstFmt Format) (Resampler, error) {
	if srcFmt.SampleRate <= 0 || dstFmt.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcFmt.SampleRate, dstFmt.SampleRate)
	}
	s := &stream{
		src:    newFrameReader(src, srcFmt.frameBytes()),
		srcFmt: srcFmt,
		dstFmt: dstFmt,
	}
	if srcFmt.SampleRate != dstFmt.SampleRate {
		filter, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.Channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: create filter: %w", err)
		}
		s.filter = filter
	}
	return s, nil
}

// Resample converts a complete PCM clip.
func Resample(pcm []byte, srcFmt, dstFmt Format) ([]byte, error) {
	if srcFmt == dstFmt {
		return bytes.Clone(pcm), nil
	}
	r, err := New(bytes.NewReader(pcm), srcFmt, dstFmt)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Read fills p with whole destination frames. It is not safe for
// concurrent use.
func (s *stream) Read(p []byte) (int, error) {
	frame := s.dstFmt.frameBytes()
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < frame {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/frame*frame]

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.leftover) > 0 {
		n := copy(p, s.leftover)
		s.leftover = s.leftover[n:]
		return n, nil
	}
	if s.srcErr != nil {
		return 0, s.srcErr
	}
	if s.closeErr != nil {
		return 0, s.closeErr
	}
	if s.filter == nil {
		n, err := s.readChannels(len(p))
		copy(p, s.readBuf[:n])
		return n, err
	}
	return s.readResampled(p)
}

func (s *stream) readResampled(p []byte) (int, error) {
	ratio := float64(s.srcFmt.SampleRate) / float64(s.dstFmt.SampleRate)
	want := int(float64(len(p))*ratio) + s.dstFmt.frameBytes()*4
	want = want / s.dstFmt.frameBytes() * s.dstFmt.frameBytes()

	n, readErr := s.readChannels(want)
	if n == 0 {
		if readErr == nil {
			readErr = io.EOF
		}
		return 0, readErr
	}

	in := make([]float64, n/2)
	for i := range in {
		in[i] = float64(int16(s.readBuf[2*i])|int16(s.readBuf[2*i+1])<<8) / 32768.0
	}
	out, err := s.filter.Process(in)
	if err != nil {
		return 0, fmt.Errorf("resampler: %w", err)
	}

	buf := make([]byte, len(out)*2)
	for i, v := range out {
		putSample(buf[2*i:], v)
	}
	buf = buf[:len(buf)/s.dstFmt.frameBytes()*s.dstFmt.frameBytes()]

	written := copy(p, buf)
	if written < len(buf) {
		s.leftover = append(s.leftover, buf[written:]...)
		if readErr != nil {
			// Hand out the buffered frames before reporting EOF.
			s.srcErr, readErr = readErr, nil
		}
	}
	if written == 0 && readErr == nil {
		// The filter is still priming; report progress so callers retry.
		return 0, nil
	}
	return written, readErr
}

// readChannels reads up to dstLen bytes worth of destination-channel PCM
// into s.readBuf, converting mono and stereo as needed.
func (s *stream) readChannels(dstLen int) (int, error) {
	srcLen := dstLen
	switch {
	case s.srcFmt.Stereo && !s.dstFmt.Stereo:
		srcLen = dstLen * 2
	case !s.srcFmt.Stereo && s.dstFmt.Stereo:
		srcLen = dstLen / 2
	}
	if need := max(srcLen, dstLen); cap(s.readBuf) < need {
		s.readBuf = make([]byte, need)
	}

	n, err := s.src.Read(s.readBuf[:srcLen])
	if n == 0 {
		return 0, err
	}
	switch {
	case s.srcFmt.Stereo && !s.dstFmt.Stereo:
		return stereoToMono(s.readBuf[:n]), err
	case !s.srcFmt.Stereo && s.dstFmt.Stereo:
		return monoToStereo(s.readBuf[:n*2]), err
	}
	return n, err
}

// Close releases the filter. Later reads return io.ErrClosedPipe.
func (s *stream) Close() error {
	return s.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases the filter. Later reads return err.
func (s *stream) CloseWithError(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr == nil {
		s.closeErr = err
	}
	s.filter = nil
	return nil
}

func putSample(b []byte, v float64) {
	var x int16
	switch {
	case v >= 1:
		x = 32767
	case v <= -1:
		x = -32768
	default:
		x = int16(v * 32767)
	}
	b[0] = byte(x)
	b[1] = byte(x >> 8)
}

// stereoToMono averages L and R in place and returns the mono length.
func stereoToMono(b []byte) int {
	frames := len(b) / 4
	for i := range frames {
		l := int16(b[4*i]) | int16(b[4*i+1])<<8
		r := int16(b[4*i+2]) | int16(b[4*i+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[2*i] = byte(m)
		b[2*i+1] = byte(m >> 8)
	}
	return frames * 2
}

// monoToStereo duplicates each sample in place. The mono data occupies the
// first half of b.
func monoToStereo(b []byte) int {
	samples := len(b) / 4
	for i := samples - 1; i >= 0; i-- {
		s0, s1 := b[2*i], b[2*i+1]
		b[4*i], b[4*i+1] = s0, s1
		b[4*i+2], b[4*i+3] = s0, s1
	}
	return samples * 4
}
