package main

import (
	"os"

	"l4lb/cmd/l4lb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
