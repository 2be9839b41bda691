// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal is returned by [Prompt] when stdin is not a terminal.
var ErrNoTerminal = errors.New("no terminal available for interactive credential prompt")

// ReadFile reads a credential from a file, trimming surrounding
// whitespace.
func ReadFile(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading credential file: %w", err)
	}
	credential := New(string(data))
	if err := credential.Validate(); err != nil {
		return "", fmt.Errorf("credential file %s: %w", path, err)
	}
	return credential, nil
}

// ReadFrom reads the first line of reader as a credential.
func ReadFrom(reader io.Reader) (Credential, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading credential: %w", err)
		}
		return "", ErrEmpty
	}
	credential := New(scanner.Text())
	if err := credential.Validate(); err != nil {
		return "", err
	}
	return credential, nil
}

// Prompt writes prompt to output and reads a credential from input with
// echo disabled. input must be a terminal.
func Prompt(input *os.File, output io.Writer, prompt string) (Credential, error) {
	descriptor := int(input.Fd())
	if !term.IsTerminal(descriptor) {
		return "", ErrNoTerminal
	}

	fmt.Fprint(output, prompt)
	data, err := term.ReadPassword(descriptor)
	fmt.Fprintln(output)
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	credential := New(string(data))
	if err := credential.Validate(); err != nil {
		return "", err
	}
	return credential, nil
}
