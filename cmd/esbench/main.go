package main

import (
	"os"

	"github.com/shivanshkc/esbench/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
