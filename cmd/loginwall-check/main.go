// Package main is a one-shot CLI that fetches URLs and reports whether each
// one landed on a login wall.
//
//	loginwall-check [--config file] [--headless] URL...
//
// Each report is printed as one JSON line. The exit code is 0 when no login
// wall was found, 2 when at least one was, and 1 on any other failure.
package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitLoginWall = 2
)

func main() {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
		os.Exit(exitOK)
	case errors.Is(err, errLoginWallDetected):
		os.Exit(exitLoginWall)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitFailure)
	}
}
