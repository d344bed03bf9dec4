package main

import (
	"os"

	"github.com/pcwa-smotley/abayopt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
