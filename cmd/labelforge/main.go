package main

import (
	"os"

	"labelforge/cmd/labelforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
