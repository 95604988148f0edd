package pcm

import (
	"fmt"
	"io"
	"time"
)

// Format describes a PCM16 little-endian audio layout: a sample rate and a
// channel count. Bit depth is fixed at 16 throughout this package.
type Format struct {
	sampleRate int
	channels   int
}

// NewFormat returns the Format for sampleRate Hz and the given channel
// count. It panics if either argument is not positive, matching the package's
// convention of treating an invalid format as a programmer error rather than
// a runtime one.
func NewFormat(sampleRate, channels int) Format {
	if sampleRate <= 0 || channels <= 0 {
		panic("pcm: invalid format")
	}
	return Format{sampleRate: sampleRate, channels: channels}
}

// The formats required by spec: mono and stereo at every supported rate.
var (
	L16Mono8K    = NewFormat(8000, 1)
	L16Mono16K   = NewFormat(16000, 1)
	L16Mono24K   = NewFormat(24000, 1)
	L16Mono44K1  = NewFormat(44100, 1)
	L16Mono48K   = NewFormat(48000, 1)
	L16Stereo8K  = NewFormat(8000, 2)
	L16Stereo16K = NewFormat(16000, 2)
	L16Stereo24K = NewFormat(24000, 2)
	L16Stereo44K = NewFormat(44100, 2)
	L16Stereo48K = NewFormat(48000, 2)
)

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int { return f.sampleRate }

// Channels returns the channel count.
func (f Format) Channels() int { return f.channels }

// Depth returns the bit depth, always 16 for this package.
func (f Format) Depth() int { return 16 }

// FrameSize returns the number of bytes in one frame (one sample per
// channel): channels * depth/8.
func (f Format) FrameSize() int { return f.channels * f.Depth() / 8 }

// Samples returns the number of per-channel samples represented by the given
// number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.channels) / int64(f.Depth())
}

// SamplesInDuration returns the number of per-channel samples in d.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.sampleRate) * d / time.Second)
}

// BytesInDuration returns the number of bytes in d, rounded down to a whole
// frame.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.FrameSize())
}

// Duration returns the playback duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.sampleRate)
}

// BitsRate returns the bit rate of the format.
func (f Format) BitsRate() int {
	return f.sampleRate * f.channels * f.Depth()
}

// BytesRate returns the byte rate of the format.
func (f Format) BytesRate() int {
	return f.BitsRate() / 8
}

// SilenceChunk returns a chunk of silence of the given duration.
func (f Format) SilenceChunk(duration time.Duration) Chunk {
	return &silenceChunk{duration: duration, len: f.BytesInDuration(duration), fmt: f}
}

// DataChunk wraps data as a chunk in this format.
func (f Format) DataChunk(data []byte) Chunk {
	return &dataChunk{data: data, fmt: f}
}

// ReadChunk reads exactly duration worth of audio from r.
func (f Format) ReadChunk(r io.Reader, duration time.Duration) (Chunk, error) {
	buf := make([]byte, f.BytesInDuration(duration))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return f.DataChunk(buf), nil
}

// String returns a human-readable description, e.g. "audio/L16; rate=16000; channels=2".
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.sampleRate, f.channels)
}

// Chunk is a unit of audio data with a known Format.
type Chunk interface {
	Len() int64
	Format() Format
	WriteTo(w io.Writer) (int64, error)
}

// dataChunk is a Chunk backed by a concrete byte slice.
type dataChunk struct {
	data []byte
	fmt  Format
}

func (c *dataChunk) Len() int64     { return int64(len(c.data)) }
func (c *dataChunk) Format() Format { return c.fmt }

func (c *dataChunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.data)
	return int64(n), err
}

// silenceChunk is a Chunk that writes zero bytes without allocating a buffer
// of its full length.
type silenceChunk struct {
	duration time.Duration
	len      int64
	fmt      Format
}

func (c *silenceChunk) Len() int64     { return c.len }
func (c *silenceChunk) Format() Format { return c.fmt }

var zeros [32 * 1024]byte

func (c *silenceChunk) WriteTo(w io.Writer) (int64, error) {
	remaining := c.len
	var written int64
	for remaining > 0 {
		chunk := zeros[:]
		if remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
		remaining -= int64(n)
	}
	return written, nil
}
