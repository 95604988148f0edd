package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/basswave/mixer/internal/session"
	"github.com/basswave/mixer/pkg/pcm"
)

var (
	mixSessionFile string
	mixOutputFile  string
)

var mixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Render a session's tracks to a WAV file",
	Long: `mix decodes every track named in a session file, feeds it through a
pcm.Mixer, and writes the mixed result as a WAV file.

Example:
  mixctl mix -f session.yaml -o out.wav`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mixSessionFile == "" {
			return errors.New("mix: -f session file is required")
		}
		if mixOutputFile == "" {
			return errors.New("mix: -o output file is required")
		}
		cfg, err := session.Load(mixSessionFile)
		if err != nil {
			return errors.Wrap(err, "mix")
		}
		return runMix(cfg, mixOutputFile)
	},
}

func init() {
	mixCmd.Flags().StringVarP(&mixSessionFile, "file", "f", "", "session YAML file")
	mixCmd.Flags().StringVarP(&mixOutputFile, "output", "o", "", "output WAV path")
	rootCmd.AddCommand(mixCmd)
}

func runMix(cfg *session.Config, outPath string) error {
	output := cfg.OutputFormat()
	mixer := pcm.NewMixer(output, append(cfg.MixerOptions(), pcm.WithAutoClose(), pcm.WithLogger(log))...)

	var wg sync.WaitGroup
	for _, tc := range cfg.Tracks {
		tc := tc
		opts := []pcm.TrackOption{}
		if tc.Label != "" {
			opts = append(opts, pcm.WithTrackLabel(tc.Label))
		}
		track, ctrl, err := mixer.CreateTrack(opts...)
		if err != nil {
			return errors.Wrapf(err, "mix: create track for %s", tc.Path)
		}
		if tc.Gain != 0 {
			ctrl.SetGain(tc.Gain)
		}
		if tc.FadeOutMS > 0 {
			ctrl.SetFadeOutDuration(tc.FadeOut())
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feedWavTrack(track, tc.Path); err != nil {
				log.Error("track failed", "path", tc.Path, "error", err)
				ctrl.CloseWithError(err)
				return
			}
			ctrl.CloseWrite()
		}()
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "mix: create %s", outPath)
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, output.SampleRate(), 16, output.Channels(), 1)
	defer enc.Close()

	chunk := make([]byte, 1<<15)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: output.Channels(), SampleRate: output.SampleRate()},
		SourceBitDepth: 16,
	}
	for {
		n, err := mixer.Read(chunk)
		if n > 0 {
			samples := decodeSamples(chunk[:n])
			intBuf.Data = samples
			if werr := enc.Write(intBuf); werr != nil {
				return errors.Wrap(werr, "mix: write wav")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "mix: read mixed audio")
		}
	}

	wg.Wait()
	log.Info("mix complete", "output", outPath)
	return nil
}

func feedWavTrack(track pcm.Track, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s is not a valid wav file", path)
	}
	format := dec.Format()
	channels := format.NumChannels
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%s: unsupported channel count %d", path, channels)
	}
	srcFormat := pcm.NewFormat(format.SampleRate, channels)

	in, err := track.Input(srcFormat)
	if err != nil {
		return errors.Wrapf(err, "open track input for %s", path)
	}

	frames := 4096
	intBuf := &audio.IntBuffer{
		Format: format,
		Data:   make([]int, frames*channels),
	}
	for {
		n, err := dec.PCMBuffer(intBuf)
		if err != nil {
			return errors.Wrapf(err, "decode %s", path)
		}
		if n == 0 {
			break
		}
		data := encodeSamples(intBuf.Data[:n])
		if _, err := in.WriteBytes(data); err != nil {
			return errors.Wrapf(err, "write samples from %s", path)
		}
		if dec.EOF() {
			break
		}
	}
	return in.CloseWrite()
}

func encodeSamples(samples []int) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return out
}

func decodeSamples(b []byte) []int {
	out := make([]int, len(b)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(b[i*2:])))
	}
	return out
}
