package resampler

import "testing"

func TestFormatChannels(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   int
	}{
		{"mono 44.1k", Format{SampleRate: 44100, Stereo: false}, 1},
		{"stereo 48k", Format{SampleRate: 48000, Stereo: true}, 2},
		{"mono 8k", Format{SampleRate: 8000, Stereo: false}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.channels(); got != tt.want {
				t.Errorf("channels() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatFrameBytes(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   int
	}{
		{"mono 16-bit", Format{SampleRate: 44100, Stereo: false}, 2},
		{"stereo 16-bit", Format{SampleRate: 48000, Stereo: true}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.frameBytes(); got != tt.want {
				t.Errorf("frameBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}
