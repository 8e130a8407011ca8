// Command saucecheck runs the storefront acceptance scenarios and serves the
// reference storefront they can run against.
package main

import (
	"errors"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
