package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		failure.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
