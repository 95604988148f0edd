package pcm

import (
	"sync/atomic"
	"time"
)

// TrackCtrl is the control surface for one track in a Mixer: gain, fade-out,
// and lifecycle, separate from the Track interface used to push audio in.
type TrackCtrl struct {
	label string
	track *track
	next  *TrackCtrl

	gain            *atomicFloat32
	readn           atomic.Int64
	fadeOutDuration atomic.Int32
}

// Label returns the track's label.
func (tc *TrackCtrl) Label() string {
	return tc.label
}

// SetGain sets the track's linear gain: 1.0 is full volume, 0.0 is silence,
// and values above 1.0 may clip once mixed with other tracks.
func (tc *TrackCtrl) SetGain(gain float32) {
	tc.gain.Store(gain)
}

// Gain returns the track's current linear gain.
func (tc *TrackCtrl) Gain() float32 {
	return tc.gain.Load()
}

// SetGainLinearTo fades the track's gain from its current value to to over
// duration, stepping every 10ms. It blocks until the fade completes.
func (tc *TrackCtrl) SetGainLinearTo(to float32, duration time.Duration) {
	from := tc.gain.Load()

	const interval = 10 * time.Millisecond
	steps := int(duration / interval)
	if steps == 0 {
		tc.gain.Store(to)
		return
	}
	for i := range steps {
		time.Sleep(interval)
		tc.gain.Store(from + (to-from)*float32(i+1)/float32(steps))
	}
}

// SetFadeOutDuration sets how long Close/CloseWithError fades the track's
// gain to zero before actually closing it. Zero (the default) closes
// immediately.
func (tc *TrackCtrl) SetFadeOutDuration(duration time.Duration) {
	tc.fadeOutDuration.Store(int32(duration / time.Millisecond))
}

// ReadBytes returns the total number of output bytes read from this track so
// far.
func (tc *TrackCtrl) ReadBytes() int64 {
	return tc.readn.Load()
}

// Close closes the track, fading out first if a fade-out duration was set.
func (tc *TrackCtrl) Close() error {
	if d := tc.fadeOutDuration.Load(); d > 0 {
		go func() {
			tc.SetGainLinearTo(0, time.Duration(d)*time.Millisecond)
			tc.track.Close()
		}()
		return tc.CloseWrite()
	}
	return tc.track.Close()
}

// CloseWithError closes the track with err, fading out first if a fade-out
// duration was set.
func (tc *TrackCtrl) CloseWithError(err error) error {
	if d := tc.fadeOutDuration.Load(); d > 0 {
		go func() {
			tc.SetGainLinearTo(0, time.Duration(d)*time.Millisecond)
			tc.track.CloseWithError(err)
		}()
		return tc.CloseWrite()
	}
	return tc.track.CloseWithError(err)
}

// CloseWriteWithSilence appends silence of the given duration and then closes
// the track's current input for writing.
func (tc *TrackCtrl) CloseWriteWithSilence(silence time.Duration) error {
	if err := tc.track.Write(tc.track.mx.output.SilenceChunk(silence)); err != nil {
		return err
	}
	return tc.CloseWrite()
}

// CloseWrite closes the track's current input for writing without
// discarding buffered audio.
func (tc *TrackCtrl) CloseWrite() error {
	return tc.track.CloseWrite()
}

// readFull pulls one mixer tick's worth of audio from the underlying track,
// reporting whether it produced anything live and whether the track is done.
func (tc *TrackCtrl) readFull(p []byte) (ok, done bool) {
	n, done := tc.track.readFull(p)
	if n > 0 {
		tc.readn.Add(int64(n))
	}
	return n > 0, done
}
