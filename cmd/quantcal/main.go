package main

import (
	"os"

	"quantcal/cmd/quantcal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
