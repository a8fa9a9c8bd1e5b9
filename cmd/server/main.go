// Package main implements the codeforge command: the HTTP API server that
// generates coding problems with an LLM, plus the migrate and generate
// maintenance commands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
