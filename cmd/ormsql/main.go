// Command ormsql compiles query descriptions to the SQL orma sends to each
// database dialect, and checks connections made with the orma
// configuration.
//
// Usage:
//
//	ormsql [flags] <command>
//
// Commands:
//   - compile: print the SQL of a YAML query description
//   - run: execute a YAML query description on the configured database
//   - dialects: list the registered dialects and their capabilities
//   - ping: open the configured database and check the connection
//   - version: print version information
//
// Configuration is read from --config, ORMA_ environment variables and
// flags, in increasing order of precedence.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ormsql:", err)
		os.Exit(1)
	}
}
