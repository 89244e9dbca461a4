package main

import (
	"fmt"
	"io"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches to the subcommand named by args[0].
func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	switch args[0] {
	case "--version":
		fmt.Fprintf(stdout, "0store %s\n", Version)
		return nil
	case "unpack":
		return runUnpack(args[1:], stdout, stderr)
	case "check":
		return runCheck(args[1:], stdout, stderr)
	case "config":
		return runConfig(args[1:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "0store - unpack software archives into a directory")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  0store --version                         Show version information")
	fmt.Fprintln(w, "  0store unpack [options] SOURCE DEST      Extract a local or http(s) archive into DEST")
	fmt.Fprintln(w, "  0store check [options] (--type MIME|URL) Check that an archive type can be unpacked here")
	fmt.Fprintln(w, "  0store config [options]                  Show the effective configuration")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run '0store <command> --help' for the options of a command.")
}
