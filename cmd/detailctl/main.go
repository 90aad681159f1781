// Command detailctl runs the product detail pipeline by hand: extract a URL,
// read or refresh a stored listing, register listings in a SQLite store.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
