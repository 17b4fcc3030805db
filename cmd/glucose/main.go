// ABOUTME: Entry point for glucose CLI.
// ABOUTME: Invokes the root Cobra command.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// PersistentPostRunE is skipped when a command fails.
		_ = teardown()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
