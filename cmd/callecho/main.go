// Command callecho is a demo CLI for the call-matching engine: it
// streams an attempt against a reference call (both read from WAV
// files by "run", or both synthesized by "demo") through an in-process
// Engine and prints the similarity result as it converges, in the
// style of haivivi-giztoy's doubaospeech CLI.
package main

import (
	"fmt"
	"os"

	"github.com/wildmatch/callecho/cmd/callecho/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
