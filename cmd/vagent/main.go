package main

import (
	"errors"
	"os"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
