package resampler

import (
	"bytes"
	"io"
	"testing"
)

// trickle returns at most n bytes per Read.
type trickle struct {
	r io.Reader
	n int
}

func (t *trickle) Read(p []byte) (int, error) {
	if len(p) > t.n {
		p = p[:t.n]
	}
	return t.r.Read(p)
}

func TestFrameReader_Aligns(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	fr := newFrameReader(&trickle{r: bytes.NewReader(data), n: 3}, 4)

	var got []byte
	buf := make([]byte, 8)
	for {
		n, err := fr.Read(buf)
		if n%4 != 0 {
			t.Fatalf("Read returned %d bytes, not a multiple of 4", n)
		}
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read error: %v", err)
		}
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %v, want %v", got, data)
	}
}

func TestFrameReader_PartialTail(t *testing.T) {
	fr := newFrameReader(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}), 4)
	buf := make([]byte, 8)

	n, err := fr.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("first Read = %d, %v; want 4, nil", n, err)
	}
	n, err = fr.Read(buf)
	if err != io.ErrUnexpectedEOF || n != 2 {
		t.Fatalf("second Read = %d, %v; want 2, io.ErrUnexpectedEOF", n, err)
	}
}

func TestFrameReader_ShortBuffer(t *testing.T) {
	fr := newFrameReader(bytes.NewReader([]byte{1, 2, 3, 4}), 4)
	if _, err := fr.Read(make([]byte, 3)); err != io.ErrShortBuffer {
		t.Fatalf("Read = %v, want io.ErrShortBuffer", err)
	}
}
