// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that choose their own exit status.
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with the error's own
// code if it has one, else 1.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes "error: err" to output and returns the exit status for
// err. A nil err writes nothing and returns 0.
func Report(output io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(output, "error: %v\n", err)
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
