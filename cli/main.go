package main

import (
	"os"

	_ "github.com/lib/pq"

	"github.com/satishbabariya/quarry/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
