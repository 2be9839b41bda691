// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/trickle/lib/conversation"
	"github.com/bureau-foundation/trickle/lib/llm"
)

// Chat runs conversation turns. *conversation.Conversation satisfies
// it.
type Chat interface {
	Submit(ctx context.Context, text string, observer conversation.Observer) error
	Abort()
	Turns() []llm.Turn
}

// chromeLines is the number of screen lines outside the viewport:
// title, status, input.
const chromeLines = 3

// liveCursor marks the end of a reply still being revealed.
const liveCursor = "▌"

// scrollbarWidth is the column to the right of the viewport.
const scrollbarWidth = 1

// eventBuffer is the capacity of the observer event channel.
const eventBuffer = 64

// Options configures a [Model].
type Options struct {
	// Title is shown in the top line, typically the model name.
	Title string

	// Theme defaults to DefaultTheme.
	Theme *Theme

	// Keys defaults to DefaultKeyMap.
	Keys *KeyMap

	// Context bounds every submitted turn. Defaults to
	// context.Background().
	Context context.Context

	// LogHandler, if set, is connected to the program by [Run] so log
	// records show in the status line.
	LogHandler *LogHandler
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	chat  Chat
	ctx   context.Context
	theme Theme
	keys  KeyMap
	title string

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int

	events   chan tea.Msg
	quit     chan struct{}
	quitting bool

	// turns is the history as of the last completed turn; rendered
	// caches its rendering at the current width.
	turns    []llm.Turn
	rendered string

	// turn numbers submissions. Events for older turns are ignored.
	turn      int
	revealing bool
	pending   []string
	live      string

	status      string
	statusLevel slog.Level
}

// NewModel returns the chat screen for chat, showing its existing
// history.
func NewModel(chat Chat, options Options) Model {
	theme := DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	keys := DefaultKeyMap
	if options.Keys != nil {
		keys = *options.Keys
	}
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Send a message"
	input.Focus()

	return Model{
		chat:     chat,
		ctx:      ctx,
		theme:    theme,
		keys:     keys,
		title:    options.Title,
		input:    input,
		viewport: viewport.New(0, 0),
		events:   make(chan tea.Msg, eventBuffer),
		quit:     make(chan struct{}),
		turns:    chat.Turns(),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForEvent(model.events))
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.input.Width = max(message.Width-len(model.input.Prompt)-1, 1)
		model.viewport.Width = max(message.Width-scrollbarWidth, 1)
		model.viewport.Height = max(message.Height-chromeLines, 1)
		model.renderHistory()
		model.refresh()
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)

	case revealMsg:
		if message.turn == model.turn && model.revealing {
			model.live += message.chunk
			model.refresh()
		}
		return model, listenForEvent(model.events)

	case turnErrorMsg:
		if message.turn == model.turn {
			model.setStatus(slog.LevelError, message.kind.String()+": "+message.message)
		}
		return model, listenForEvent(model.events)

	case turnDoneMsg:
		return model.handleTurnDone(message)

	case logRecordMsg:
		model.setStatus(message.level, message.summary)
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{summary: message.summary}
		})

	case logRecordFadeMsg:
		if model.status == message.summary {
			model.status = ""
		}
		return model, nil
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	return model, command
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		// Releasing blocked observers first lets the abort return.
		if !model.quitting {
			model.quitting = true
			close(model.quit)
		}
		model.chat.Abort()
		return model, tea.Quit

	case key.Matches(message, model.keys.Abort):
		if !model.revealing {
			return model, nil
		}
		model.setStatus(slog.LevelInfo, "reply stopped")
		// Abort waits for an in-flight reveal, which may be blocked on
		// the event channel this goroutine drains.
		chat := model.chat
		return model, func() tea.Msg {
			chat.Abort()
			return nil
		}

	case key.Matches(message, model.keys.Submit):
		return model.submit()

	case key.Matches(message, model.keys.ScrollUp, model.keys.ScrollDown):
		var command tea.Cmd
		model.viewport, command = model.viewport.Update(message)
		return model, command
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	return model, command
}

// submit starts a turn for the input line. A reply still being
// revealed is interrupted by the conversation itself.
func (model Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(model.input.Value())
	if text == "" {
		return model, nil
	}
	model.input.Reset()

	if !model.revealing {
		model.pending = nil
	}
	model.pending = append(model.pending, text)
	model.turn++
	model.revealing = true
	model.live = ""
	model.status = ""
	model.refresh()

	chat := model.chat
	ctx := model.ctx
	turn := model.turn
	observer := turnObserver{turn: turn, events: model.events, quit: model.quit}
	return model, func() tea.Msg {
		return turnDoneMsg{turn: turn, err: chat.Submit(ctx, text, observer)}
	}
}

func (model Model) handleTurnDone(message turnDoneMsg) (tea.Model, tea.Cmd) {
	if message.turn != model.turn {
		return model, nil
	}
	model.revealing = false
	model.pending = nil
	model.live = ""
	model.turns = model.chat.Turns()
	if errors.Is(message.err, conversation.ErrInterrupted) && model.status == "" {
		model.setStatus(slog.LevelInfo, "reply stopped")
	}
	model.renderHistory()
	model.refresh()
	return model, nil
}

func (model *Model) setStatus(level slog.Level, text string) {
	model.status = text
	model.statusLevel = level
}

// contentWidth leaves a column of margin beside the scrollbar.
func (model Model) contentWidth() int {
	return max(model.width-scrollbarWidth-1, minimumWidth)
}

// renderHistory re-renders the completed turns at the current width.
func (model *Model) renderHistory() {
	var blocks []string
	for _, turn := range model.turns {
		if block := model.renderTurn(turn); block != "" {
			blocks = append(blocks, block)
		}
	}
	model.rendered = strings.Join(blocks, "\n\n")
}

func (model Model) renderTurn(turn llm.Turn) string {
	width := model.contentWidth()
	switch turn.Role {
	case llm.RoleUser:
		return model.label("You", model.theme.UserLabel) + "\n" +
			ansi.Wrap(turn.Content, width, wrapBreakpoints)
	case llm.RoleAssistant:
		return model.label("Assistant", model.theme.AssistantLabel) + "\n" +
			renderMarkdown(turn.Content, model.theme, width)
	case llm.RoleSystem:
		return model.label("System", model.theme.SystemLabel) + "\n" +
			lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(ansi.Wrap(turn.Content, width, wrapBreakpoints))
	}
	return ""
}

func (model Model) label(name string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(name)
}

// refresh rebuilds the viewport content and follows the bottom.
func (model *Model) refresh() {
	width := model.contentWidth()
	blocks := []string{}
	if model.rendered != "" {
		blocks = append(blocks, model.rendered)
	}
	for _, text := range model.pending {
		blocks = append(blocks, model.label("You", model.theme.UserLabel)+"\n"+ansi.Wrap(text, width, wrapBreakpoints))
	}
	if model.revealing {
		blocks = append(blocks, model.label("Assistant", model.theme.AssistantLabel)+"\n"+
			ansi.Wrap(model.live, width, wrapBreakpoints)+liveCursor)
	}
	model.viewport.SetContent(strings.Join(blocks, "\n\n"))
	model.viewport.GotoBottom()
}

// View implements tea.Model.
func (model Model) View() string {
	if model.quitting {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeadingText).Render("trickle")
	if model.title != "" {
		title += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("  " + model.title)
	}
	scrollbar := renderScrollbar(model.theme, model.viewport.Height,
		model.viewport.TotalLineCount(), model.viewport.VisibleLineCount(), model.viewport.YOffset)
	history := lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), scrollbar)
	return title + "\n" + history + "\n" + model.statusLine() + "\n" + model.input.View()
}

func (model Model) statusLine() string {
	if model.status == "" {
		help := model.keys.helpLine()
		if model.revealing {
			help = "replying…  " + help
		}
		return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(ansi.Truncate(help, max(model.width, 1), "…"))
	}
	color := model.theme.FaintText
	switch {
	case model.statusLevel >= slog.LevelError:
		color = model.theme.ErrorText
	case model.statusLevel >= slog.LevelWarn:
		color = model.theme.WarningText
	}
	return lipgloss.NewStyle().Foreground(color).Render(ansi.Truncate(model.status, max(model.width, 1), "…"))
}
