// legalrag is the entry point for the legal document retrieval service: an
// HTTP API plus CLI commands for ingesting, querying, and deleting
// documents.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
