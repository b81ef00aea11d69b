// Command deepcopy manages records described by a YAML schema and deep-copies
// them together with every owned record reachable from them.
//
// Storage and the manifest archive are selected through DEEPCOPY_* environment
// variables; see internal/core.OpenPersistentStore and internal/blob.Open.
package main

import (
	"context"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
