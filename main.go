package main

import (
	"os"

	"gitlab.com/heartbeat-intel/edge-router/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
