package main

import (
	"os"

	"github.com/venice-ai/venice-go/cli/commands"
)

func main() {
	os.Exit(commands.Execute())
}
