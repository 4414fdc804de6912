package resampler

import "io"

// frameReader returns only whole frames from r, holding back a partial
// frame until the rest of it arrives.
type frameReader struct {
	r        io.Reader
	size     int
	pending  []byte
	buffered int
}

func newFrameReader(r io.Reader, frameSize int) *frameReader {
	return &frameReader{r: r, size: frameSize, pending: make([]byte, frameSize-1)}
}

// Read returns a multiple of the frame size. A trailing partial frame at
// EOF is returned with io.ErrUnexpectedEOF.
func (fr *frameReader) Read(p []byte) (int, error) {
	if len(p) < fr.size {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fr.size*fr.size]

	n := copy(p, fr.pending[:fr.buffered])
	fr.buffered = 0

	rn, err := fr.r.Read(p[n:])
	n += rn
	if err != nil {
		if err == io.EOF && n%fr.size != 0 {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}
	if rem := n % fr.size; rem != 0 {
		n -= rem
		fr.buffered = copy(fr.pending, p[n:n+rem])
	}
	return n, nil
}
