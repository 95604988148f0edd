// Package pcm provides a real-time multi-track PCM16 audio mixer with lazy
// per-input resampling.
//
// A Mixer accepts any number of concurrently-written Tracks, each in its own
// sample rate and channel layout drawn from Format's supported set
// (mono/stereo at 8000, 16000, 24000, 44100 and 48000 Hz), converts them on
// demand to the mixer's output Format, sums them with per-track gain, clips
// to the PCM16 range, and exposes the result through Read — an io.Reader
// meant to be driven by a single realtime consumer (a sound card, a network
// sink, a speech API).
//
// Key types:
//   - Format: sample rate, channel count and derived byte-rate arithmetic
//   - Chunk: a unit of audio data with a known Format
//   - Mixer: owns the set of live tracks and the mixed output stream
//   - Track: a producer-facing handle for writing one voice's audio
//   - TrackCtrl: a control-plane handle for gain, fade-out and close
//
// Example usage:
//
//	mx := pcm.NewMixer(pcm.L16Mono16K, pcm.WithAutoClose())
//	track, ctrl, err := mx.CreateTrack()
//	// ... write audio to track, control it via ctrl ...
//	io.Copy(output, mx)
package pcm
