// Command fppsim samples pulse arrival times for filtered point process
// (FPP) signals, logs them as deterministic runs and reports on them.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(GetExitCode(err))
	}
}
