// Command sopctl analyses, validates, builds and visualises SOP
// documentation graphs.
//
// Usage:
//
//	sopctl impact sop-onboarding --change-type delete
//	sopctl validate --strict
//	sopctl build
//	sopctl mcp
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Version is the sopctl release.
const Version = "0.3.0"

// Exit codes.
const (
	ExitSuccess  = 0
	ExitFindings = 1 // risk over threshold, validation failed, cycles found
	ExitError    = 2
)

// findingsError ends a run that completed but found problems.
type findingsError struct {
	msg string
}

func (e *findingsError) Error() string {
	return e.msg
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	var findings *findingsError
	if errors.As(err, &findings) {
		if findings.msg != "" {
			fmt.Fprintln(stderr, findings.msg)
		}
		return ExitFindings
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}
