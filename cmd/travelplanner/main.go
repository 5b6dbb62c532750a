package main

import (
	"os"

	"github.com/jsexpertdev/ostad-ai-agent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
