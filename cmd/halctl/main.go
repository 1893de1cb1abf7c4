package main

import (
	"os"

	"github.com/hashicorp-forge/hal/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
