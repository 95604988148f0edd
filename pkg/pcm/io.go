package pcm

import (
	"errors"
	"io"
	"time"
)

// Writer accepts chunks of audio data.
type Writer interface {
	Write(Chunk) error
}

// WriteFunc adapts a function to a Writer.
type WriteFunc func(Chunk) error

// Write implements Writer.
func (f WriteFunc) Write(c Chunk) error { return f(c) }

// Discard is a Writer that drops everything written to it.
var Discard Writer = discardWriter{}

type discardWriter struct{}

func (discardWriter) Write(Chunk) error { return nil }

// IOWriter adapts a pcm.Writer into an io.Writer, wrapping every byte slice
// written as a DataChunk in the given format.
func IOWriter(w Writer, f Format) io.Writer {
	return &ioWriter{w: w, f: f}
}

type ioWriter struct {
	w Writer
	f Format
}

func (w *ioWriter) Write(b []byte) (int, error) {
	if err := w.w.Write(w.f.DataChunk(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}

// ChunkWriter adapts an io.Writer into a pcm.Writer: every chunk is written
// via its own WriteTo.
func ChunkWriter(w io.Writer) Writer {
	return &chunkWriter{w: w}
}

type chunkWriter struct {
	w io.Writer
}

func (w *chunkWriter) Write(c Chunk) error {
	_, err := c.WriteTo(w.w)
	return err
}

// Copy streams audio from r to w as DataChunks of at least 20ms, in the given
// format, until r is exhausted; the final chunk may be shorter.
func Copy(w Writer, r io.Reader, format Format) error {
	minChunk := int(format.BytesInDuration(20 * time.Millisecond))
	buf := make([]byte, 10*minChunk)
	for {
		n, err := io.ReadAtLeast(r, buf, minChunk)
		if n > 0 {
			if werr := w.Write(format.DataChunk(buf[:n])); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}
