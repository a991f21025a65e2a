// Package main is the entry point for catalogsync.
package main

import (
	"os"

	"github.com/buyvia/catalogsync/cmd/catalogsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
