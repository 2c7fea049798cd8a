package main

import (
	"os"

	"github.com/ariel-frischer/changeset/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
