package main

import (
	"os"

	"cth/cmd/cth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
