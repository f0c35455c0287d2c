// Package main is the entry point for the bulkmail service.
package main

import (
	"fmt"
	"os"

	"github.com/corpola/bulkmail/cmd/bulkmail/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
