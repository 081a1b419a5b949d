// Command syncmeta inspects a database's catalog and manages its scope table.
//
// Usage:
//
//	syncmeta --driver postgres --dsn "$DATABASE_URL" describe public.orders
//	syncmeta --config syncmeta.yaml scope touch sales --local
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
