package resampler

// Format describes a PCM stream's sample rate and channel layout for
// resampling purposes. Samples are always 16-bit signed integers.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g. 16000, 44100, 48000).
	SampleRate int

	// Stereo selects 2 interleaved channels; false selects 1 (mono).
	Stereo bool
}

func (f Format) channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// frameBytes returns the number of bytes occupied by one frame (one sample
// per channel) in this format.
func (f Format) frameBytes() int {
	return f.channels() * 2
}
