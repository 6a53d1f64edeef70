package main

import (
	"os"

	"github.com/spigell/lead-responder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
