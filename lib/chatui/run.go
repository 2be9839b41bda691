// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the chat screen until the user quits or ctx is canceled.
func Run(ctx context.Context, chat Chat, options Options) error {
	options.Context = ctx
	program := tea.NewProgram(NewModel(chat, options),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if options.LogHandler != nil {
		options.LogHandler.SetProgram(program)
		defer options.LogHandler.SetProgram(nil)
	}

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
