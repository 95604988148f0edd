package resampler

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func monoSamples(values ...int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestResamplerMonoToStereoDuplicatesSamples(t *testing.T) {
	src := monoSamples(100, -200, 300)
	r, err := New(bytes.NewReader(src), Format{SampleRate: 16000, Stereo: false}, Format{SampleRate: 16000, Stereo: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []byte{}
	for _, v := range []int16{100, -200, 300} {
		pair := make([]byte, 2)
		binary.LittleEndian.PutUint16(pair, uint16(v))
		want = append(want, pair...)
		want = append(want, pair...)
	}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestResamplerStereoToMonoAverages(t *testing.T) {
	// L=100,R=300 -> 200 ; L=-100,R=-300 -> -200
	src := monoSamples(100, 300, -100, -300)
	r, err := New(bytes.NewReader(src), Format{SampleRate: 16000, Stereo: true}, Format{SampleRate: 16000, Stereo: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := monoSamples(200, -200)
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestResamplerSilenceStaysZero(t *testing.T) {
	src := make([]byte, 400) // 200 mono frames of silence
	r, err := New(bytes.NewReader(src), Format{SampleRate: 48000, Stereo: false}, Format{SampleRate: 16000, Stereo: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	for i := 0; i+1 < len(out); i += 2 {
		s := int16(binary.LittleEndian.Uint16(out[i : i+2]))
		if s != 0 {
			t.Fatalf("resampled silence produced non-zero sample %d at offset %d", s, i)
		}
	}
}

func TestResamplerCloseWithErrorSticks(t *testing.T) {
	r, err := New(bytes.NewReader(nil), Format{SampleRate: 16000, Stereo: false}, Format{SampleRate: 16000, Stereo: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	buf := make([]byte, 4)
	for i := 0; i < 2; i++ {
		if _, err := r.Read(buf); !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("read %d after close: err=%v, want io.ErrClosedPipe", i, err)
		}
	}
}
