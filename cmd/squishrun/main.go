// Package main is the entry point for the squishrun CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/squishrun/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
