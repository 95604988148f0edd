package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSession(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidSession(t *testing.T) {
	path := writeSession(t, `
output:
  sample_rate: 16000
  channels: 1
silence_gap_ms: 500
auto_close: true
tracks:
  - path: a.wav
    gain: 0.8
  - path: b.wav
    label: bgm
    fade_out_ms: 250
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutputFormat().SampleRate() != 16000 || cfg.OutputFormat().Channels() != 1 {
		t.Fatalf("unexpected output format: %v", cfg.OutputFormat())
	}
	if !cfg.AutoClose {
		t.Fatal("expected auto_close true")
	}
	if len(cfg.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(cfg.Tracks))
	}
	if cfg.Tracks[1].FadeOut() != 250*time.Millisecond {
		t.Fatalf("unexpected fade out: %v", cfg.Tracks[1].FadeOut())
	}
	opts := cfg.MixerOptions()
	if len(opts) != 2 {
		t.Fatalf("expected 2 mixer options, got %d", len(opts))
	}
}

func TestLoadRejectsMissingTracks(t *testing.T) {
	path := writeSession(t, `
output:
  sample_rate: 16000
  channels: 1
tracks: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty track list")
	}
}

func TestLoadRejectsBadChannels(t *testing.T) {
	path := writeSession(t, `
output:
  sample_rate: 16000
  channels: 3
tracks:
  - path: a.wav
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid channel count")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
