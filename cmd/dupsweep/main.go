// Command dupsweep scans path arguments for duplicate files and
// directories and prints a shell script that would remove the redundant
// copies.
package main

import (
	"fmt"
	"os"
)

func main() {
	w = &PlainOutput{Device: os.Stdout}
	log = &PlainOutput{Device: os.Stderr}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(handleError(err.Error(), 1, argJSONOutput))
	}
	if cmdError != nil {
		msg := cmdError.Error()
		if argVerbosity >= 2 {
			msg = fmt.Sprintf("%+v", cmdError)
		}
		os.Exit(handleError(msg, exitCode, argJSONOutput))
	}
	os.Exit(exitCode)
}
