package resampler

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameReaderExactMultiple(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	r := newFrameReader(bytes.NewReader(data), 4)

	buf := make([]byte, 8)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if n != 8 || !bytes.Equal(buf[:n], data) {
		t.Fatalf("Read got n=%d buf=%v", n, buf[:n])
	}
}

func TestFrameReaderPartialFrame(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6} // 6 bytes, frame size 4
	r := newFrameReader(bytes.NewReader(data), 4)

	buf := make([]byte, 8)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("first read error: %v", err)
	}
	if n != 4 || !bytes.Equal(buf[:n], []byte{1, 2, 3, 4}) {
		t.Fatalf("first read got n=%d buf=%v", n, buf[:n])
	}

	n, err = r.Read(buf)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("second read error = %v, want io.ErrUnexpectedEOF", err)
	}
	if n != 2 {
		t.Fatalf("second read n=%d, want 2", n)
	}
}

func TestFrameReaderShortBuffer(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := newFrameReader(bytes.NewReader(data), 4)

	_, err := r.Read(make([]byte, 2))
	if err != io.ErrShortBuffer {
		t.Fatalf("err = %v, want io.ErrShortBuffer", err)
	}
}

func TestFrameReaderCarriesRemainderAcrossReads(t *testing.T) {
	// Two reads of 3 bytes each into a reader with frame size 4: the first
	// read can only emit 0 complete frames and must buffer the remainder,
	// the second read completes the frame using the buffered bytes.
	part1 := bytes.NewBuffer([]byte{1, 2, 3})
	r := newFrameReader(multiReader{part1, bytes.NewBuffer([]byte{4, 5, 6})}, 4)

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("first read error: %v", err)
	}
	if n != 0 {
		t.Fatalf("first read n=%d, want 0", n)
	}

	n, err = r.Read(buf)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if n != 4 || !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Fatalf("got n=%d buf=%v", n, buf)
	}
}

// multiReader concatenates readers without the io package's EOF-merging
// behavior getting in the way of the buffered-remainder test above.
type multiReader []*bytes.Buffer

func (m multiReader) Read(p []byte) (int, error) {
	for _, b := range m {
		if b.Len() > 0 {
			return b.Read(p)
		}
	}
	return 0, io.EOF
}
