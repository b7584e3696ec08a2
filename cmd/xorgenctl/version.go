package main

import (
	"flag"
	"fmt"
	"os"
)

var version = "dev"

var showVersion = flag.Bool("version", false, "Print xorgenctl version and exit")

// maybePrintVersion writes the version to stdout when the global --version
// flag is set and reports whether it did.
func maybePrintVersion() bool {
	if !*showVersion {
		return false
	}
	fmt.Println(version)
	return true
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "version takes no arguments")
		return 2
	}
	fmt.Println(version)
	return 0
}
