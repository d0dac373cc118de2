package main

import (
	"os"

	"github.com/CreamyCappuccino/mlxlm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
