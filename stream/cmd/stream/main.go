package main

import (
	"fmt"
	"os"

	"github.com/openframe-oss/openframe-stream/stream/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stream: %v\n", err)
		os.Exit(1)
	}
}
