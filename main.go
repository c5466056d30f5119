package main

import (
	"os"

	"github.com/tkrenek/fbmask/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
