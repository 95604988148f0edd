package pcm

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/google/uuid"
)

// MixerOption configures a Mixer at construction time.
type MixerOption interface {
	apply(*Mixer)
}

type autoCloseOption struct{}

func (autoCloseOption) apply(mx *Mixer) { mx.autoClose = true }

// WithAutoClose makes the mixer close its write side automatically once its
// last track is gone. Defaults to false (Read blocks for a fresh track).
func WithAutoClose() MixerOption {
	return autoCloseOption{}
}

type silenceGapOption struct{ gap time.Duration }

func (o silenceGapOption) apply(mx *Mixer) {
	mx.silenceGap = o.gap
}

// WithSilenceGap makes Read emit silent chunks while no tracks are present,
// until gap worth of silence has been returned; after that Read blocks until
// a new track is created. Zero (the default) disables the gap.
func WithSilenceGap(gap time.Duration) MixerOption {
	return silenceGapOption{gap: gap}
}

type onTrackCreatedOption struct{ fn func(*TrackCtrl) }

func (o onTrackCreatedOption) apply(mx *Mixer) { mx.onTrackCreated = o.fn }

// WithOnTrackCreated sets a callback invoked after a new track is created.
func WithOnTrackCreated(fn func(*TrackCtrl)) MixerOption {
	return onTrackCreatedOption{fn: fn}
}

type onTrackClosedOption struct{ fn func(*TrackCtrl) }

func (o onTrackClosedOption) apply(mx *Mixer) { mx.onTrackClosed = o.fn }

// WithOnTrackClosed sets a callback invoked after a track is retired from
// the mix.
func WithOnTrackClosed(fn func(*TrackCtrl)) MixerOption {
	return onTrackClosedOption{fn: fn}
}

type loggerOption struct{ log *slog.Logger }

func (o loggerOption) apply(mx *Mixer) { mx.log = o.log }

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) MixerOption {
	return loggerOption{log: log}
}

// Mixer combines any number of live Tracks into a single PCM16 stream in a
// fixed output Format. Producers write to Tracks; a single consumer reads
// the mixed result from the Mixer itself via Read.
//
// All exported methods are safe to call from multiple goroutines.
type Mixer struct {
	output    Format
	readChunk int
	autoClose bool
	log       *slog.Logger

	mu         sync.Mutex
	head       *TrackCtrl
	closeErr   error
	closeWrite bool

	silenceGap     time.Duration
	runningSilence time.Duration

	trackNotify chan struct{}
	writeNotify chan struct{}

	buf      []float32
	trackBuf []byte

	onTrackCreated func(*TrackCtrl)
	onTrackClosed  func(*TrackCtrl)
}

// NewMixer creates a Mixer producing audio in output format, reading in
// 60ms chunks.
func NewMixer(output Format, opts ...MixerOption) *Mixer {
	mx := &Mixer{
		output:      output,
		readChunk:   int(output.BytesInDuration(60 * time.Millisecond)),
		trackNotify: make(chan struct{}, 1),
		writeNotify: make(chan struct{}, 1),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(mx)
	}
	return mx
}

// Output returns the mixer's output format.
func (mx *Mixer) Output() Format {
	return mx.output
}

// TrackOption configures a track at creation time.
type TrackOption interface {
	apply(*TrackCtrl)
}

type trackLabelOption struct{ label string }

func (o trackLabelOption) apply(tc *TrackCtrl) { tc.label = o.label }

// WithTrackLabel sets a human-readable label for the track, used in logs and
// returned by TrackCtrl.Label. If not set, CreateTrack generates one.
func WithTrackLabel(label string) TrackOption {
	return trackLabelOption{label: label}
}

// CreateTrack adds a new track to the mix and returns a Track for writing
// audio plus a TrackCtrl for controlling it. It fails once the mixer's write
// side is closed.
func (mx *Mixer) CreateTrack(opts ...TrackOption) (Track, *TrackCtrl, error) {
	mx.mu.Lock()

	if mx.closeErr != nil {
		err := mx.closeErr
		mx.mu.Unlock()
		return nil, nil, err
	}
	if mx.closeWrite {
		mx.mu.Unlock()
		return nil, nil, fmt.Errorf("pcm/mixer: create track after CloseWrite: %w", io.ErrClosedPipe)
	}

	tr, err := mx.newTrack()
	if err != nil {
		mx.mu.Unlock()
		return nil, nil, err
	}
	ctrl := &TrackCtrl{
		label: uuid.NewString(),
		track: tr,
		next:  mx.head,
		gain:  newAtomicFloat32(1),
	}
	for _, opt := range opts {
		opt.apply(ctrl)
	}
	mx.head = ctrl

	select {
	case mx.trackNotify <- struct{}{}:
	default:
	}
	mx.mu.Unlock()

	mx.log.Debug("track created", "label", ctrl.label)
	if mx.onTrackCreated != nil {
		mx.onTrackCreated(ctrl)
	}
	return tr, ctrl, nil
}

// Read implements io.Reader, filling p with up to one readChunk's worth of
// mixed audio. It blocks until there is something to return or the mixer is
// done.
func (mx *Mixer) Read(p []byte) (int, error) {
	if len(p) > mx.readChunk {
		p = p[:mx.readChunk]
	}
	if err := mx.readFull(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// CloseWrite closes the mixer's write side: no new tracks may be created,
// and Read returns io.EOF once every existing track finishes.
func (mx *Mixer) CloseWrite() error {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	return mx.closeWriteLocked()
}

// Close closes the mixer immediately, equivalent to CloseWithError(nil).
func (mx *Mixer) Close() error {
	return mx.CloseWithError(fmt.Errorf("pcm/mixer: %w", io.ErrClosedPipe))
}

// CloseWithError closes the mixer and every live track with err. If err is
// nil, io.ErrClosedPipe is used.
func (mx *Mixer) CloseWithError(err error) error {
	if err == nil {
		err = fmt.Errorf("pcm/mixer: %w", io.ErrClosedPipe)
	}
	mx.mu.Lock()
	defer mx.mu.Unlock()
	if mx.closeErr != nil {
		return nil
	}
	mx.closeErr = err
	if !mx.closeWrite {
		mx.closeWrite = true
		close(mx.trackNotify)
		close(mx.writeNotify)
	}

	for it := mx.head; it != nil; it = it.next {
		it.track.CloseWithError(err)
	}
	mx.log.Error("mixer closed", "error", err)
	return nil
}

func (mx *Mixer) closeWriteLocked() error {
	if mx.closeErr != nil || mx.closeWrite {
		return nil
	}
	mx.closeWrite = true
	close(mx.trackNotify)
	close(mx.writeNotify)
	for it := mx.head; it != nil; it = it.next {
		it.CloseWrite()
	}
	return nil
}

// readFull mixes tracks into p until it has something to return or the
// mixer is finished, blocking on writeNotify in between attempts.
func (mx *Mixer) readFull(p []byte) error {
	i16 := unsafe.Slice((*int16)(unsafe.Pointer(&p[0])), len(p)/2)

	mx.mu.Lock()

	if len(mx.buf) < len(i16) {
		mx.buf = make([]float32, len(i16))
	}

	var (
		peak    float32
		read    bool
		silence bool
		closed  []*TrackCtrl
	)
	for {
		var err error
		var justClosed []*TrackCtrl
		peak, read, silence, justClosed, err = mx.mixOnceLocked(p)
		closed = append(closed, justClosed...)
		if err != nil {
			mx.mu.Unlock()
			mx.fireClosed(closed)
			return err
		}
		if read || silence {
			break
		}
		mx.mu.Unlock()
		<-mx.writeNotify
		mx.mu.Lock()
	}

	if read {
		mx.runningSilence = 0
	} else if silence {
		mx.runningSilence += mx.output.Duration(int64(len(p)))
	}
	mx.mu.Unlock()
	mx.fireClosed(closed)

	if peak == 0 {
		for i := range i16 {
			i16[i] = 0
		}
		return nil
	}

	for i := range i16 {
		t := mx.buf[i]
		if t > 1 {
			t = 1
		} else if t < -1 {
			t = -1
		}
		if t >= 0 {
			i16[i] = int16(t * 32767)
		} else {
			i16[i] = int16(t * 32768)
		}
	}
	return nil
}

// fireClosed invokes the onTrackClosed callback, if any, for each track
// retired during the read that just completed. Called with the mixer's
// lock released, per the package's "callbacks never run under a lock" rule.
func (mx *Mixer) fireClosed(closed []*TrackCtrl) {
	for _, tc := range closed {
		mx.log.Debug("track closed", "label", tc.label, "bytes_read", tc.ReadBytes())
		if mx.onTrackClosed != nil {
			mx.onTrackClosed(tc)
		}
	}
}

// headTrackLocked returns the current first track, or reports that the
// caller should emit a gap of silence, or that the mixer is finished.
func (mx *Mixer) headTrackLocked() (head *TrackCtrl, silence bool, err error) {
	for {
		if mx.closeErr != nil {
			return nil, false, mx.closeErr
		}
		if mx.head != nil {
			return mx.head, false, nil
		}
		if mx.closeWrite {
			return nil, false, io.EOF
		}
		if mx.autoClose {
			mx.closeWriteLocked()
			return nil, false, io.EOF
		}
		if mx.runningSilence < mx.silenceGap {
			return nil, true, nil
		}
		mx.mu.Unlock()
		_, ok := <-mx.trackNotify
		mx.mu.Lock()
		if !ok {
			continue
		}
	}
}

// mixOnceLocked reads one chunk from every live track, summing their gained
// samples into mx.buf, and unlinks any track that has finished. Finished
// tracks are returned rather than announced here, so the caller can fire
// onTrackClosed after releasing the mixer's lock.
func (mx *Mixer) mixOnceLocked(p []byte) (peak float32, read, silence bool, closed []*TrackCtrl, err error) {
	it, silence, err := mx.headTrackLocked()
	if err != nil || silence {
		return
	}

	for i := range mx.buf {
		mx.buf[i] = 0
	}

	if len(mx.trackBuf) < len(p) {
		mx.trackBuf = make([]byte, len(p))
	}
	trackBuf := mx.trackBuf[:len(p)]
	trackI16 := unsafe.Slice((*int16)(unsafe.Pointer(&trackBuf[0])), len(trackBuf)/2)

	var prev *TrackCtrl
	for it != nil {
		ok, done := it.readFull(trackBuf)
		if ok {
			read = true
			gain := it.gain.Load()
			for i := range trackI16 {
				if trackI16[i] == 0 {
					continue
				}
				s := float32(trackI16[i])
				if s >= 0 {
					s /= 32767
				} else {
					s /= 32768
				}
				s *= gain
				if s > peak {
					peak = s
				} else if -s > peak {
					peak = -s
				}
				mx.buf[i] += s
			}
		}

		if done {
			finished := it
			it = it.next
			if prev == nil {
				mx.head = it
			} else {
				prev.next = it
			}
			closed = append(closed, finished)
			continue
		}

		prev = it
		it = it.next
	}
	return
}

// wakeReader nudges the read loop awake after a track produces data,
// without holding up the writer that triggered it.
func (mx *Mixer) wakeReader() {
	go func() {
		mx.mu.Lock()
		defer mx.mu.Unlock()
		if mx.closeErr != nil || mx.closeWrite {
			return
		}
		select {
		case mx.writeNotify <- struct{}{}:
		default:
		}
	}()
}

var defaultTrackInputFormat = L16Mono16K

func (mx *Mixer) newTrack() (*track, error) {
	tr := &track{mx: mx}
	in, err := tr.newInput(defaultTrackInputFormat)
	if err != nil {
		return nil, err
	}
	tr.inputs = append(tr.inputs, in)
	return tr, nil
}
