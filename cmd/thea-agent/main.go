// Copyright 2025 Joseph Cumines
//
// thea-agent - local HTTP agent driving the Thea app through System Events

package main

import (
	"fmt"
	"os"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "thea-agent:", err)
		os.Exit(1)
	}
}
