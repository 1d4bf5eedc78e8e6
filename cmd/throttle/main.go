package main

import (
	"os"

	"github.com/Lcking/throttle/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
