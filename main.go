// ./main.go
package main

import (
	"github.com/xkilldash9x/multisteam/cmd"
)

// main is the entry point for the multisteam shell.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles command-line parsing, configuration, and execution.
	cmd.Execute()
}
