// Command rowformat drives a mixed insert/update/remove/search/
// truncate workload against an in-memory rowstore, the way ops.c
// drives format against a WiredTiger table: populate, run, report.
package main

import (
	"fmt"
	"os"

	"github.com/dgraph-io/rowstore/cmd/rowformat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
