// Package resampler streams PCM16 audio from one sample rate/channel layout
// to another.
//
// It supports:
//   - Sample rate conversion (e.g. 44100Hz to 48000Hz)
//   - Channel conversion (mono to stereo or stereo to mono)
//   - A streaming io.Reader interface with cross-call residual carry, so a
//     resampler instance can be fed one small chunk at a time for the entire
//     lifetime of an audio input without losing or duplicating samples.
//
// Quality is delivered by github.com/tphakala/go-audio-resampling's
// windowed-sinc kernel at its high-quality preset; channel conversion
// (stereo-to-mono downmix, mono-to-stereo duplication) is applied in the same
// pipeline, before the rate conversion step.
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 44100, Stereo: true}
//	dst := resampler.Format{SampleRate: 48000, Stereo: false}
//	r, err := resampler.New(audioReader, src, dst)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	io.Copy(output, r)
package resampler
