package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler streams PCM16 audio from one Format to another. State (rate
// conversion history, channel-mix buffering) is carried across Read calls, so
// a single instance must be reused for the entire lifetime of one audio
// input — never recreated per call — for sample counts to stay correct.
type Resampler interface {
	io.ReadCloser
	CloseWithError(error) error
}

// flusher is implemented by rate converters that hold internal filter delay
// and must emit trailing samples once the source is exhausted.
type flusher interface {
	Flush() ([]float64, error)
}

// streamResampler resamples from srcFmt to dstFmt using a pure-Go
// windowed-sinc rate converter with no CGO dependency.
type streamResampler struct {
	srcFmt Format
	src    *frameReader

	dstFmt  Format
	readBuf []byte

	mu            sync.Mutex
	closeErr      error
	rate          resampling.Resampler
	needsResample bool
	flushed       bool
	leftover      []byte
}

// New creates a Resampler converting audio from srcFmt to dstFmt. Either or
// both of sample rate and channel count may differ between the two formats.
func New(src io.Reader, srcFmt, dstFmt Format) (Resampler, error) {
	needsResample := srcFmt.SampleRate != dstFmt.SampleRate

	var rate resampling.Resampler
	if needsResample {
		cfg := &resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		var err error
		rate, err = resampling.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("resampler: create rate converter: %w", err)
		}
	}

	return &streamResampler{
		srcFmt:        srcFmt,
		src:           newFrameReader(src, srcFmt.frameBytes()),
		dstFmt:        dstFmt,
		rate:          rate,
		needsResample: needsResample,
	}, nil
}

// Read fills p with resampled audio, returning a count that is always a
// multiple of the destination frame size until the source is exhausted and
// flushed.
func (r *streamResampler) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < r.dstFmt.frameBytes() {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/r.dstFmt.frameBytes()*r.dstFmt.frameBytes()]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	if r.closeErr != nil {
		return 0, r.closeErr
	}

	if !r.needsResample {
		return r.readChannelConvOnly(p)
	}
	return r.readAndResample(p)
}

// readAndResample reads source frames, runs them through the rate converter,
// and converts the result to dstFmt's channel layout and byte encoding.
func (r *streamResampler) readAndResample(p []byte) (int, error) {
	ratio := float64(r.srcFmt.SampleRate) / float64(r.dstFmt.SampleRate)
	srcBytesNeeded := int(float64(len(p))*ratio) + r.srcFmt.frameBytes()*4

	if cap(r.readBuf) < srcBytesNeeded {
		r.readBuf = make([]byte, srcBytesNeeded)
	}

	n, readErr := r.readSourceConvertingChannels(srcBytesNeeded)
	if n == 0 {
		if readErr == nil {
			// Source is temporarily starved, not at EOF: propagate that
			// without flushing, so the caller can retry later instead of
			// mistaking starvation for end of stream.
			return 0, nil
		}
		if readErr != io.EOF {
			return 0, readErr
		}
		return r.flushInto(p)
	}

	samples := bytesToFloat64(r.readBuf[:n], r.dstFmt.channels())
	out, err := r.rate.Process(samples)
	if err != nil {
		return 0, fmt.Errorf("resampler: process: %w", err)
	}

	outBytes := float64sToBytes(out)
	aligned := len(outBytes) / r.dstFmt.frameBytes() * r.dstFmt.frameBytes()
	outBytes = outBytes[:aligned]

	written := copy(p, outBytes)
	if written < len(outBytes) {
		r.leftover = append(r.leftover, outBytes[written:]...)
	}

	if readErr == io.EOF && written == 0 && len(r.leftover) == 0 {
		return r.flushInto(p)
	}
	return written, nil
}

// flushInto drains the rate converter's internal filter delay once the
// source is exhausted, per the resampler's "flush on input EOF" contract.
func (r *streamResampler) flushInto(p []byte) (int, error) {
	if r.flushed {
		return 0, io.EOF
	}
	r.flushed = true

	fl, ok := r.rate.(flusher)
	if !ok {
		return 0, io.EOF
	}
	tail, err := fl.Flush()
	if err != nil {
		return 0, fmt.Errorf("resampler: flush: %w", err)
	}
	if len(tail) == 0 {
		return 0, io.EOF
	}
	outBytes := float64sToBytes(tail)
	n := copy(p, outBytes)
	if n < len(outBytes) {
		r.leftover = append(r.leftover, outBytes[n:]...)
	}
	return n, nil
}

// readChannelConvOnly handles the mono<->stereo-only case with no rate
// conversion.
func (r *streamResampler) readChannelConvOnly(p []byte) (int, error) {
	n, err := r.readSourceConvertingChannels(len(p))
	if n == 0 {
		return 0, err
	}
	copy(p, r.readBuf[:n])
	return n, err
}

// readSourceConvertingChannels reads raw source bytes and converts between
// mono and stereo in place, producing up to dstLen bytes in the destination
// channel layout.
func (r *streamResampler) readSourceConvertingChannels(dstLen int) (int, error) {
	if cap(r.readBuf) < dstLen {
		r.readBuf = make([]byte, dstLen)
	}

	switch {
	case r.srcFmt.Stereo && !r.dstFmt.Stereo:
		srcLen := dstLen * 2
		if cap(r.readBuf) < srcLen {
			r.readBuf = make([]byte, srcLen)
		}
		n, err := r.src.Read(r.readBuf[:srcLen])
		if n == 0 {
			return 0, err
		}
		return downmixStereoToMono(r.readBuf[:n]), err

	case r.srcFmt.Stereo == r.dstFmt.Stereo:
		return r.src.Read(r.readBuf[:dstLen])

	default: // mono source, stereo destination
		n, err := r.src.Read(r.readBuf[:dstLen/2])
		if n == 0 {
			return 0, err
		}
		return upmixMonoToStereo(r.readBuf[:n*2]), err
	}
}

// Close releases the resampler's resources.
func (r *streamResampler) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError marks the resampler closed with err; subsequent reads
// return err.
func (r *streamResampler) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.rate = nil
	return nil
}

// downmixStereoToMono averages interleaved L/R int16 samples into mono
// samples, in place, returning the number of mono bytes produced.
func downmixStereoToMono(b []byte) int {
	frames := len(b) / 4
	for i := range frames {
		j, k := i*4, i*2
		l := int16(b[j]) | int16(b[j+1])<<8
		r := int16(b[j+2]) | int16(b[j+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[k] = byte(m)
		b[k+1] = byte(m >> 8)
	}
	return frames * 2
}

// upmixMonoToStereo duplicates mono int16 samples into interleaved L/R, in
// place (scanning backwards so source and destination can overlap), returning
// the number of stereo bytes produced.
func upmixMonoToStereo(b []byte) int {
	stereoLen := len(b)
	frames := stereoLen / 4
	for i := frames - 1; i >= 0; i-- {
		s0, s1 := b[i*2], b[i*2+1]
		j := i * 4
		b[j], b[j+1] = s0, s1
		b[j+2], b[j+3] = s0, s1
	}
	return stereoLen
}

func bytesToFloat64(b []byte, channels int) []float64 {
	frames := len(b) / (2 * channels)
	out := make([]float64, frames*channels)
	for i := range out {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

func float64sToBytes(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s > 1.0:
			v = 32767
		case s < -1.0:
			v = -32768
		default:
			v = int16(s * 32767.0)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
