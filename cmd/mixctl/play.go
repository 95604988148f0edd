package main

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/basswave/mixer/internal/session"
	"github.com/basswave/mixer/pkg/pcm"
)

var playSessionFile string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Stream a session's mixed output live to the default output device",
	Long: `play mixes every track named in a session file and streams the
result live through the default audio output device.

Example:
  mixctl play -f session.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if playSessionFile == "" {
			return errors.New("play: -f session file is required")
		}
		cfg, err := session.Load(playSessionFile)
		if err != nil {
			return errors.Wrap(err, "play")
		}
		return runPlay(cfg)
	},
}

func init() {
	playCmd.Flags().StringVarP(&playSessionFile, "file", "f", "", "session YAML file")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cfg *session.Config) error {
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
			return errors.Wrapf(err, "play: create track for %s", tc.Path)
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

	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, "play: init portaudio")
	}
	defer portaudio.Terminate()

	const framesPerBuf = 1024
	samples := make([]float32, framesPerBuf*output.Channels())
	stream, err := portaudio.OpenDefaultStream(0, output.Channels(), float64(output.SampleRate()), framesPerBuf, &samples)
	if err != nil {
		return errors.Wrap(err, "play: open output stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "play: start stream")
	}
	defer stream.Stop()

	pcmBuf := make([]byte, len(samples)*2)
	for {
		n, err := mixer.Read(pcmBuf)
		if n > 0 {
			fillFloat32(samples, pcmBuf[:n])
			if werr := stream.Write(); werr != nil {
				return errors.Wrap(werr, "play: write to device")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "play: read mixed audio")
		}
	}

	wg.Wait()
	log.Info("playback complete")
	return nil
}

// fillFloat32 converts int16 PCM bytes into the normalized float32 samples
// portaudio's blocking stream expects, zero-filling any tail shorter than a
// full buffer.
func fillFloat32(dst []float32, src []byte) {
	n := len(src) / 2
	for i := 0; i < len(dst); i++ {
		if i >= n {
			dst[i] = 0
			continue
		}
		v := int16(binary.LittleEndian.Uint16(src[i*2:]))
		if v >= 0 {
			dst[i] = float32(v) / 32767
		} else {
			dst[i] = float32(v) / 32768
		}
	}
}
