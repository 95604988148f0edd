package pcm

import (
	"fmt"
	"io"
	"sync"

	"github.com/basswave/mixer/pkg/resampler"
	"github.com/basswave/mixer/pkg/ringbuffer"
)

// inputBufferSeconds is how much audio a single input's ring buffer holds
// before a producer blocks on Write — spec's back-pressure window.
const inputBufferSeconds = 10

// Track is a producer-facing handle for writing one voice's audio into a
// Mixer. A track holds an ordered, append-only FIFO of inputs; writing in a
// new source format opens a new input and closes the previous one for
// writing, without interrupting the track's output.
type Track interface {
	Writer

	// WriteBytes writes raw PCM16 bytes in the mixer's output format. If
	// len(data) isn't a whole number of frames, it is truncated down to the
	// last frame boundary; the truncated byte count is returned.
	WriteBytes(data []byte) (int, error)

	// Input opens (or reuses) a writer accepting audio in the given source
	// format. Calling Input with a different format than the current one
	// closes the current input for writing and opens a new one.
	Input(format Format) (TrackWriter, error)

	CloseWrite() error
	CloseWithError(err error) error
	Close() error
}

// TrackWriter accepts audio in one specific source format.
type TrackWriter interface {
	// WriteBytes writes raw PCM16 bytes in this input's format, truncated
	// down to a whole frame when len(data) isn't a multiple of
	// Format.FrameSize(). It returns the number of bytes actually written.
	WriteBytes(data []byte) (int, error)
	CloseWrite() error
}

// track is the Internal Track of spec §4.2.
type track struct {
	mx *Mixer

	mu       sync.Mutex
	closeErr error
	inputs   []*trackInput
}

// Write writes chunk to the input matching its format, creating that input
// if it differs from the current one.
func (tk *track) Write(chunk Chunk) error {
	in, err := tk.inputFor(chunk.Format())
	if err != nil {
		return err
	}
	_, err = chunk.WriteTo(in)
	return err
}

// WriteBytes implements Track.
func (tk *track) WriteBytes(data []byte) (int, error) {
	usable := len(data) / tk.mx.output.FrameSize() * tk.mx.output.FrameSize()
	data = data[:usable]
	if err := tk.Write(tk.mx.output.DataChunk(data)); err != nil {
		return 0, err
	}
	return usable, nil
}

// Input implements Track.
func (tk *track) Input(format Format) (TrackWriter, error) {
	return tk.inputFor(format)
}

// CloseWrite closes the current input's write side; its buffered audio still
// drains normally. If the producer writes a different format afterward, a
// fresh input opens and the track keeps playing without a gap.
func (tk *track) CloseWrite() error {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	if len(tk.inputs) == 0 {
		return nil
	}
	err := tk.inputs[len(tk.inputs)-1].CloseWrite()
	tk.mx.wakeReader()
	return err
}

// Close closes the track with io.ErrClosedPipe.
func (tk *track) Close() error {
	return tk.CloseWithError(fmt.Errorf("pcm/track: %w", io.ErrClosedPipe))
}

// CloseWithError closes the track and every one of its inputs with err,
// discarding any unread audio.
func (tk *track) CloseWithError(err error) error {
	if err == nil {
		err = fmt.Errorf("pcm/track: %w", io.ErrClosedPipe)
	}
	tk.mu.Lock()
	defer tk.mu.Unlock()
	if tk.closeErr != nil {
		return nil
	}
	tk.closeErr = err
	for _, in := range tk.inputs {
		in.CloseWithError(err)
	}
	tk.mx.wakeReader()
	return nil
}

func (tk *track) inputFor(format Format) (*trackInput, error) {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	if tk.closeErr != nil {
		return nil, tk.closeErr
	}

	if len(tk.inputs) != 0 {
		last := tk.inputs[len(tk.inputs)-1]
		if last.format == format {
			return last, nil
		}
		last.CloseWrite()
	}

	in, err := tk.newInput(format)
	if err != nil {
		return nil, err
	}
	tk.inputs = append(tk.inputs, in)
	return in, nil
}

func (tk *track) newInput(format Format) (*trackInput, error) {
	rb := ringbuffer.New(format.BytesRate() * inputBufferSeconds)
	rb.Notify = tk.mx.wakeReader

	in := &trackInput{format: format, rb: rb}
	if format == tk.mx.output {
		return in, nil
	}

	rs, err := resampler.New(
		nonBlockingReader{rb},
		resampler.Format{SampleRate: format.SampleRate(), Stereo: format.Channels() == 2},
		resampler.Format{SampleRate: tk.mx.output.SampleRate(), Stereo: tk.mx.output.Channels() == 2},
	)
	if err != nil {
		return nil, fmt.Errorf("pcm/track: add input %v: %w", format, err)
	}
	in.resampler = rs
	return in, nil
}

// readFull fills p with up to len(p) bytes of this track's audio in the
// mixer's output format, reading its inputs in FIFO order, resampling as
// needed, and zero-filling any tail that a starved-but-not-finished input
// can't supply yet. It implements spec §4.2's read_full.
func (tk *track) readFull(p []byte) (n int, done bool) {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	if tk.closeErr != nil {
		return 0, true
	}

	total := 0
readLoop:
	for total < len(p) && len(tk.inputs) > 0 {
		head := tk.inputs[0]
		rn, err := head.read(p[total:])
		total += rn

		switch {
		case err == nil:
			if rn == 0 {
				// Head has no data right now but hasn't ended: stop early,
				// whatever was read so far (possibly nothing) stands.
				break readLoop
			}
			// Keep pulling from the same head; it may have more to give.
		case err == io.EOF:
			head.Close()
			tk.inputs = tk.inputs[1:]
			// continue with whatever input is now at the head, if any
		default:
			// TrackRuntimeError: an input failed unexpectedly. The whole
			// track is closed with this error; other tracks are unaffected.
			tk.closeErr = err
			tk.mx.log.Warn("track closed with error", "error", err)
			break readLoop
		}
	}

	// A call that produced no real audio reports it as-is (the caller
	// distinguishes starved-but-alive from finished via done). A call that
	// produced some audio but couldn't fill p is zero-padded to a full
	// chunk, since the mixer always mixes whole chunks.
	if total > 0 && total < len(p) {
		for i := total; i < len(p); i++ {
			p[i] = 0
		}
		total = len(p)
	}

	done = tk.closeErr != nil || len(tk.inputs) == 0
	return total, done
}

// trackInput is one segment of a track's audio: its own ring buffer in the
// input's source format, plus a lazily-built resampler that is reused for
// the input's entire lifetime so cross-call sample counts stay correct.
type trackInput struct {
	format    Format
	rb        *ringbuffer.RingBuffer
	resampler resampler.Resampler // nil when format equals the mixer's output
}

// Write implements io.Writer so a Chunk can be written via WriteTo.
func (ti *trackInput) Write(p []byte) (int, error) {
	return ti.rb.Write(p)
}

// WriteBytes implements TrackWriter, truncating data down to a whole frame
// in this input's format before writing.
func (ti *trackInput) WriteBytes(data []byte) (int, error) {
	usable := len(data) / ti.format.FrameSize() * ti.format.FrameSize()
	data = data[:usable]
	if _, err := ti.rb.Write(data); err != nil {
		return 0, err
	}
	return usable, nil
}

// CloseWrite implements TrackWriter.
func (ti *trackInput) CloseWrite() error {
	return ti.rb.CloseWrite()
}

// Close releases the input's resources with io.ErrClosedPipe.
func (ti *trackInput) Close() error {
	return ti.CloseWithError(fmt.Errorf("pcm/track: input: %w", io.ErrClosedPipe))
}

// CloseWithError closes the input's resampler (if any) and ring buffer with
// err.
func (ti *trackInput) CloseWithError(err error) error {
	if ti.resampler != nil {
		ti.resampler.CloseWithError(err)
	}
	return ti.rb.CloseWithError(err)
}

// read pulls resampled (or passthrough) bytes for this input without
// blocking: (0, nil) means temporarily starved, (0, io.EOF) means the input
// is fully drained and will never produce more.
func (ti *trackInput) read(p []byte) (int, error) {
	if ti.resampler != nil {
		return ti.resampler.Read(p)
	}
	return ti.rb.TryRead(p)
}

// nonBlockingReader adapts a RingBuffer's non-blocking TryRead to the
// io.Reader interface the resampler package consumes, so a resampler never
// stalls the track's read_full when its source is merely starved.
type nonBlockingReader struct {
	rb *ringbuffer.RingBuffer
}

func (r nonBlockingReader) Read(p []byte) (int, error) {
	return r.rb.TryRead(p)
}
