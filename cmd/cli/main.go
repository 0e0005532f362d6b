// Package main is the entry point for the planql CLI binary.
package main

import (
	"os"

	cli "planql/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
