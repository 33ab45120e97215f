// Command vnastore manages the HP8753 profile store: calibration kit ingestion, saved
// calibrations and traces, program options and Touchstone exports.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vnastore: %v\n", err)
		os.Exit(1)
	}
}
