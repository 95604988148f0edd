package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mixctl",
	Short: "Mix PCM audio tracks described by a session file",
	Long: `mixctl mixes any number of audio tracks into a single PCM stream.

A session file describes the output format, mixer policy (silence gap,
auto-close), and the list of tracks to play. mix and play always enable
auto-close, so each ends once every track has finished and the file's
silence_gap_ms and auto_close have no effect on them:

  output:
    sample_rate: 16000
    channels: 1
  auto_close: true
  tracks:
    - path: voice.wav
      gain: 1.0
    - path: music.wav
      gain: 0.3
      fade_out_ms: 500

Commands:
  mix   render a session to a WAV file
  play  stream a session live to the default output device`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cobra.OnInitialize(initLogger)
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
