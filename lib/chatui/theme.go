// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme is the chat interface palette. Colors are ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	UserLabel      lipgloss.Color
	AssistantLabel lipgloss.Color
	SystemLabel    lipgloss.Color

	HeadingText lipgloss.Color
	CodeText    lipgloss.Color
	LinkText    lipgloss.Color
	ErrorText   lipgloss.Color
	WarningText lipgloss.Color

	BorderColor lipgloss.Color
	HelpText    lipgloss.Color
}

// DefaultTheme suits a dark 256-color terminal.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	UserLabel:      lipgloss.Color("75"),  // blue
	AssistantLabel: lipgloss.Color("114"), // green
	SystemLabel:    lipgloss.Color("141"), // light purple

	HeadingText: lipgloss.Color("255"),
	CodeText:    lipgloss.Color("180"),
	LinkText:    lipgloss.Color("81"),
	ErrorText:   lipgloss.Color("196"),
	WarningText: lipgloss.Color("220"),

	BorderColor: lipgloss.Color("240"),
	HelpText:    lipgloss.Color("241"),
}
