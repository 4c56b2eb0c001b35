// Package main is the entry point for the nfprobe NetFlow v5 exporter.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/nfprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
