package main

import (
	"os"

	"slurm-watch/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
