package main

import (
	"os"

	"speech-eval-toolkit/cmd/wercer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
