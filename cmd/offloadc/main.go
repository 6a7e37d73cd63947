package main

import (
	"os"

	"github.com/3leaps/offloadc/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
