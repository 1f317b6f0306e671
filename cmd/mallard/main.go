// Package main is the mallard entry point.
package main

import (
	"os"

	"github.com/mallardlabs/mallard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
