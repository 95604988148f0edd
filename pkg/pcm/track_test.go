package pcm

import "testing"

// A write that isn't a whole number of frames is truncated down to the last
// frame boundary, and the truncated count is reported back to the caller.
func TestTrackWriterTruncatesOddBytes(t *testing.T) {
	mixer := NewMixer(L16Mono16K, WithAutoClose())

	tr, ctrl, err := mixer.CreateTrack()
	if err != nil {
		t.Fatal(err)
	}

	tw, err := tr.Input(L16Mono48K)
	if err != nil {
		t.Fatal(err)
	}

	n, err := tw.WriteBytes([]byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("write_bytes truncated to %d, want 2", n)
	}

	if err := tw.CloseWrite(); err != nil {
		t.Fatal(err)
	}
	ctrl.Close()
	mixer.CloseWrite()
}

// Track.WriteBytes, which targets the mixer's output format directly,
// truncates the same way.
func TestTrackWriteBytesTruncatesOddBytes(t *testing.T) {
	mixer := NewMixer(L16Mono16K, WithAutoClose())

	tr, ctrl, err := mixer.CreateTrack()
	if err != nil {
		t.Fatal(err)
	}

	n, err := tr.WriteBytes([]byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("WriteBytes truncated to %d, want 2", n)
	}

	ctrl.Close()
}
