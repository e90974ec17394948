package main

import (
	"os"

	"github.com/crewmesh-systems/crewmesh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
