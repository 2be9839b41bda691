// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/trickle/lib/conversation"
	"github.com/bureau-foundation/trickle/lib/llm"
)

// runPlain chats one stdin line at a time, writing each reply to
// output as it is revealed. It returns at end of input or when ctx is
// canceled. With prompt set, a "> " prompt precedes each read.
func runPlain(ctx context.Context, chat *conversation.Conversation, input *bufio.Reader, output io.Writer, prompt bool) error {
	styles := lipgloss.NewRenderer(output)
	promptStyle := styles.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle := styles.NewStyle().Foreground(lipgloss.Color("9"))

	lines, readErr := readLines(ctx, input)
	observer := conversation.ObserverFuncs{
		Reveal: func(chunk string, _ time.Duration) {
			io.WriteString(output, chunk)
		},
		Error: func(_ llm.ErrorKind, message string) {
			fmt.Fprint(output, errorStyle.Render(message))
		},
	}

	for {
		if prompt {
			fmt.Fprint(output, promptStyle.Render("> "))
		}

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			if err := <-readErr; err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		err := chat.Submit(ctx, text, observer)
		fmt.Fprintln(output)
		if errors.Is(err, conversation.ErrInterrupted) {
			return nil
		}
	}
}

// readLines delivers input's lines until end of input or until ctx is
// done. The error channel receives the read error, nil at EOF, or
// ctx.Err(), before lines closes. A read already blocked on input is
// not interrupted; the goroutine exits once it returns.
func readLines(ctx context.Context, input *bufio.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line, err := input.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					readErr <- ctx.Err()
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	}()
	return lines, readErr
}
