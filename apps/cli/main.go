package main

import (
	"fmt"
	"os"

	"github.com/torqueware/shopboard/apps/cli/root"
)

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
