package main

import (
	"os"

	"github.com/example/manifest-audit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
