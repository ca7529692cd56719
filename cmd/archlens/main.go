package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

func main() {
	err := rootCmd.Execute()
	closeLogger()
	if err == nil {
		return
	}
	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err and returns the process exit code for it.
// Errors that are not exitErrors come from cobra's flag and argument parsing.
func reportError(w io.Writer, err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(w, "Error:", exit.err)
		}
		return exit.code
	}
	fmt.Fprintln(w, "Error:", err)
	return exitUsage
}
