package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/rowgit/pkg/core"
)

// Exit codes. Lock contention gets its own code so host scripts can retry.
const (
	exitFailure    = 1
	exitContention = 75
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "rowgit: %s: %v\n", msg, err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if errors.Is(err, core.ErrLockContention) {
		return exitContention
	}
	return exitFailure
}
