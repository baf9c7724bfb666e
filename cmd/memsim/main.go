package main

import (
	"os"

	"github.com/bnema/memsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
