// Command mixctl mixes PCM audio tracks described by a session file, either
// into a WAV file or live to the default output device.
//
// Usage:
//
//	mixctl mix -f session.yaml -o output.wav
//	mixctl play -f session.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
